package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/taurinrobinson-wq/saoriverse-console-sub005/internal/logger"
	"github.com/taurinrobinson-wq/saoriverse-console-sub005/internal/utils"
)

// Coarseness selects the generalization applied to the coarse timestamp.
type Coarseness string

const (
	CoarsenessWeek  Coarseness = "week"
	CoarsenessDay   Coarseness = "day"
	CoarsenessMonth Coarseness = "month"
)

// Precision selects whether encoded records keep a second-precision
// timestamp alongside the coarse bucket, or only the bucket.
type Precision string

const (
	PrecisionSecond Precision = "second"
	PrecisionCoarse Precision = "coarse"
)

type Config struct {
	EncodingSalt      string
	LengthBucketWidth int
	Coarseness        Coarseness
	Precision         Precision

	ClarificationDBTimeout time.Duration
	ClarificationPatterns  []string
	ClarificationStorePath string

	CrisisLocale      string
	CrisisLexiconPath string
}

// Load reads the recognized environment options. It fails hard when
// ENCODING_SALT is unset: hashing with a guessed salt would silently
// produce un-migratable records.
func Load(log *logger.Logger) (*Config, error) {
	cfg := &Config{
		EncodingSalt:      strings.TrimSpace(utils.GetEnv("ENCODING_SALT", "", nil)),
		LengthBucketWidth: utils.GetEnvAsInt("LENGTH_BUCKET_WIDTH", 100, log),
		Coarseness:        Coarseness(strings.ToLower(utils.GetEnv("TIMESTAMP_COARSENESS", "week", log))),
		Precision:         Precision(strings.ToLower(utils.GetEnv("TIMESTAMP_PRECISION", "second", log))),

		ClarificationStorePath: utils.GetEnv("CLARIFICATION_STORE_PATH", "", log),

		CrisisLocale:      strings.ToUpper(utils.GetEnv("CRISIS_LOCALE", "US", log)),
		CrisisLexiconPath: utils.GetEnv("CRISIS_LEXICON_PATH", "", log),
	}

	timeoutSec := utils.GetEnvAsFloat("CLARIFICATION_DB_INSERT_TIMEOUT", 0.5, log)
	if timeoutSec <= 0 {
		timeoutSec = 0.5
	}
	cfg.ClarificationDBTimeout = time.Duration(timeoutSec * float64(time.Second))

	if raw := strings.TrimSpace(utils.GetEnv("CLARIFICATION_TRIGGER_PATTERNS", "", log)); raw != "" {
		for _, p := range strings.Split(raw, ",") {
			if p = strings.TrimSpace(p); p != "" {
				cfg.ClarificationPatterns = append(cfg.ClarificationPatterns, p)
			}
		}
	}

	if cfg.EncodingSalt == "" {
		return nil, fmt.Errorf("ENCODING_SALT is required and has no default; refusing to start")
	}
	if cfg.LengthBucketWidth < 50 || cfg.LengthBucketWidth%50 != 0 {
		return nil, fmt.Errorf("LENGTH_BUCKET_WIDTH must be >= 50 and a multiple of 50, got %d", cfg.LengthBucketWidth)
	}
	switch cfg.Coarseness {
	case CoarsenessWeek, CoarsenessDay, CoarsenessMonth:
	default:
		return nil, fmt.Errorf("TIMESTAMP_COARSENESS must be one of week|day|month, got %q", cfg.Coarseness)
	}
	switch cfg.Precision {
	case PrecisionSecond, PrecisionCoarse:
	default:
		return nil, fmt.Errorf("TIMESTAMP_PRECISION must be second|coarse, got %q", cfg.Precision)
	}
	return cfg, nil
}
