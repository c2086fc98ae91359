package encoder

// Signal categories form a small closed set. The category join on the
// encoded record is derived from these, never from the raw keyword.
const (
	CategoryCrisis     = "crisis"
	CategoryOverwhelm  = "overwhelm"
	CategoryGrief      = "grief"
	CategoryRelational = "relational"
	CategoryPositive   = "positive"
	CategoryEmotional  = "emotional"
)

type signalCode struct {
	Code     string
	Category string
}

// signalTable maps known signal keywords to stable opaque codes. The code
// is the only thing that leaves the process; the keyword never does.
var signalTable = map[string]signalCode{
	"crisis":      {"SIG_CRISIS_001", CategoryCrisis},
	"hopeless":    {"SIG_CRISIS_002", CategoryCrisis},
	"unsafe":      {"SIG_CRISIS_003", CategoryCrisis},
	"overwhelm":   {"SIG_OVERWHELM_001", CategoryOverwhelm},
	"overwhelmed": {"SIG_OVERWHELM_002", CategoryOverwhelm},
	"burnout":     {"SIG_OVERWHELM_003", CategoryOverwhelm},
	"panic":       {"SIG_OVERWHELM_004", CategoryOverwhelm},
	"grief":       {"SIG_GRIEF_001", CategoryGrief},
	"loss":        {"SIG_GRIEF_002", CategoryGrief},
	"mourning":    {"SIG_GRIEF_003", CategoryGrief},
	"lonely":      {"SIG_RELATIONAL_001", CategoryRelational},
	"conflict":    {"SIG_RELATIONAL_002", CategoryRelational},
	"abandonment": {"SIG_RELATIONAL_003", CategoryRelational},
	"betrayal":    {"SIG_RELATIONAL_004", CategoryRelational},
	"gratitude":   {"SIG_POSITIVE_001", CategoryPositive},
	"hope":        {"SIG_POSITIVE_002", CategoryPositive},
	"relief":      {"SIG_POSITIVE_003", CategoryPositive},
	"joy":         {"SIG_POSITIVE_004", CategoryPositive},
	"sadness":     {"SIG_EMOTIONAL_001", CategoryEmotional},
	"anger":       {"SIG_EMOTIONAL_002", CategoryEmotional},
	"fear":        {"SIG_EMOTIONAL_003", CategoryEmotional},
	"shame":       {"SIG_EMOTIONAL_004", CategoryEmotional},
	"numbness":    {"SIG_EMOTIONAL_005", CategoryEmotional},
	"anxiety":     {"SIG_EMOTIONAL_006", CategoryEmotional},
}

// gateTable maps known gate ids to opaque checkpoint codes.
var gateTable = map[int]string{
	1: "GATE_CALM_001",
	2: "GATE_GROUNDING_002",
	3: "GATE_REFLECTION_003",
	4: "GATE_VALIDATION_004",
	5: "GATE_BOUNDARY_005",
	6: "GATE_CLOSURE_006",
	7: "GATE_SAFETY_007",
}
