package config

import (
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	DatabaseURL       string
	Port              string
	IsProduction      bool
	EnableDBCheck     bool
	JWTSecret         string
	JWTExpiryDuration time.Duration
	JWTIssuer         string
	RateLimit         string // formatted rate, e.g. "100-M"

	// Engine tuning
	BalanceTolerance       decimal.Decimal
	MaterialityThreshold   decimal.Decimal
	RuleMatchCap           int
	AlternativesCap        int
	RankerRuleWeight       float64
	RankerHistoryWeight    float64
	RankerMLWeight         float64
	RankerConvergenceBonus float64
	HistoryHalfLifeDays    int
	SuggestionWorkers      int
	SuggestionBatchTimeout time.Duration

	// External classifier service
	ClassifierBaseURL      string
	ClassifierAPIKey       string
	ClassifierTimeout      time.Duration
	ClassifierModelVersion string

	// Training feed (empty brokers or topic disables publishing)
	KafkaBrokers       []string
	KafkaTrainingTopic string

	PosthogAPIKey string
}

// TrainingFeedEnabled reports whether review decisions should be published
// to Kafka. Both the broker list and the topic must be configured.
func (c *Config) TrainingFeedEnabled() bool {
	return len(c.KafkaBrokers) > 0 && c.KafkaTrainingTopic != ""
}

// LoadConfig loads configuration from environment variables and .env file if present.
func LoadConfig() (*Config, error) {
	// Attempt to load .env file, ignore error if it doesn't exist
	_ = godotenv.Load()

	viper.SetDefault("PGSQL_URL", "")
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("IS_PRODUCTION", false)
	viper.SetDefault("ENABLE_DB_CHECK", false)
	viper.SetDefault("JWT_SECRET", "a-very-secret-key-should-be-longer-and-random")
	viper.SetDefault("JWT_EXPIRY_DURATION", "1h")
	viper.SetDefault("JWT_ISSUER", "ledgermap-backend")
	viper.SetDefault("RATE_LIMIT", "100-M")
	viper.SetDefault("BALANCE_TOLERANCE", "0.01")
	viper.SetDefault("MATERIALITY_THRESHOLD", "10000")
	viper.SetDefault("RULE_MATCH_CAP", 3)
	viper.SetDefault("ALTERNATIVES_CAP", 4)
	viper.SetDefault("RANKER_RULE_WEIGHT", 1.0)
	viper.SetDefault("RANKER_HISTORY_WEIGHT", 1.0)
	viper.SetDefault("RANKER_ML_WEIGHT", 1.0)
	viper.SetDefault("RANKER_CONVERGENCE_BONUS", 0.05)
	viper.SetDefault("HISTORY_HALF_LIFE_DAYS", 365)
	viper.SetDefault("SUGGESTION_WORKERS", 8)
	viper.SetDefault("SUGGESTION_BATCH_TIMEOUT", "2m")
	viper.SetDefault("CLASSIFIER_BASE_URL", "")
	viper.SetDefault("CLASSIFIER_API_KEY", "")
	viper.SetDefault("CLASSIFIER_TIMEOUT", "3s")
	viper.SetDefault("CLASSIFIER_MODEL_VERSION", "")
	viper.SetDefault("KAFKA_BROKERS", "")
	viper.SetDefault("KAFKA_TRAINING_TOPIC", "mapping-decisions")
	viper.SetDefault("POSTHOG_API_KEY", "")

	// Environment variables override defaults and .env file values.
	viper.AutomaticEnv()

	cfg := &Config{}

	cfg.DatabaseURL = viper.GetString("PGSQL_URL")
	if cfg.DatabaseURL == "" {
		log.Println("Warning: PGSQL_URL environment variable not set.")
	}

	cfg.Port = viper.GetString("PORT")
	cfg.IsProduction = viper.GetBool("IS_PRODUCTION")
	cfg.EnableDBCheck = viper.GetBool("ENABLE_DB_CHECK")

	cfg.JWTSecret = viper.GetString("JWT_SECRET")
	if cfg.JWTSecret == "a-very-secret-key-should-be-longer-and-random" {
		log.Println("Warning: JWT_SECRET environment variable not set. Using default insecure key.")
	}

	// Load JWT Expiry Duration (e.g., "60m", "1h")
	jwtExpiryStr := viper.GetString("JWT_EXPIRY_DURATION")
	jwtExpiryDuration, err := time.ParseDuration(jwtExpiryStr)
	if err != nil {
		jwtExpiryDuration = time.Hour * 1
		log.Printf("Warning: Invalid value for JWT_EXPIRY_DURATION ('%s'). Defaulting to %s.\n", jwtExpiryStr, jwtExpiryDuration.String())
	}
	cfg.JWTExpiryDuration = jwtExpiryDuration
	cfg.JWTIssuer = viper.GetString("JWT_ISSUER")
	cfg.RateLimit = viper.GetString("RATE_LIMIT")

	// Balance tolerance is the absolute amount by which debits and credits
	// may differ before a trial balance is flagged as unbalanced.
	balanceToleranceStr := viper.GetString("BALANCE_TOLERANCE")
	balanceTolerance, err := decimal.NewFromString(balanceToleranceStr)
	if err != nil || balanceTolerance.IsNegative() {
		balanceTolerance = decimal.NewFromFloat(0.01)
		log.Printf("Warning: Invalid value for BALANCE_TOLERANCE ('%s'). Defaulting to %s.\n", balanceToleranceStr, balanceTolerance.String())
	}
	cfg.BalanceTolerance = balanceTolerance

	materialityStr := viper.GetString("MATERIALITY_THRESHOLD")
	materialityThreshold, err := decimal.NewFromString(materialityStr)
	if err != nil || materialityThreshold.IsNegative() {
		materialityThreshold = decimal.NewFromInt(10000)
		log.Printf("Warning: Invalid value for MATERIALITY_THRESHOLD ('%s'). Defaulting to %s.\n", materialityStr, materialityThreshold.String())
	}
	cfg.MaterialityThreshold = materialityThreshold

	cfg.RuleMatchCap = viper.GetInt("RULE_MATCH_CAP")
	if cfg.RuleMatchCap <= 0 {
		cfg.RuleMatchCap = 3
		log.Printf("Warning: Invalid value for RULE_MATCH_CAP. Defaulting to %d.\n", cfg.RuleMatchCap)
	}

	cfg.AlternativesCap = viper.GetInt("ALTERNATIVES_CAP")
	if cfg.AlternativesCap <= 0 {
		cfg.AlternativesCap = 4
		log.Printf("Warning: Invalid value for ALTERNATIVES_CAP. Defaulting to %d.\n", cfg.AlternativesCap)
	}

	cfg.RankerRuleWeight = nonNegativeFloat("RANKER_RULE_WEIGHT", 1.0)
	cfg.RankerHistoryWeight = nonNegativeFloat("RANKER_HISTORY_WEIGHT", 1.0)
	cfg.RankerMLWeight = nonNegativeFloat("RANKER_ML_WEIGHT", 1.0)
	cfg.RankerConvergenceBonus = nonNegativeFloat("RANKER_CONVERGENCE_BONUS", 0.05)

	cfg.HistoryHalfLifeDays = viper.GetInt("HISTORY_HALF_LIFE_DAYS")
	if cfg.HistoryHalfLifeDays <= 0 {
		cfg.HistoryHalfLifeDays = 365
		log.Printf("Warning: Invalid value for HISTORY_HALF_LIFE_DAYS. Defaulting to %d.\n", cfg.HistoryHalfLifeDays)
	}

	cfg.SuggestionWorkers = viper.GetInt("SUGGESTION_WORKERS")
	if cfg.SuggestionWorkers <= 0 {
		cfg.SuggestionWorkers = 8
		log.Printf("Warning: Invalid value for SUGGESTION_WORKERS. Defaulting to %d.\n", cfg.SuggestionWorkers)
	}

	batchTimeoutStr := viper.GetString("SUGGESTION_BATCH_TIMEOUT")
	batchTimeout, err := time.ParseDuration(batchTimeoutStr)
	if err != nil || batchTimeout <= 0 {
		batchTimeout = 2 * time.Minute
		log.Printf("Warning: Invalid value for SUGGESTION_BATCH_TIMEOUT ('%s'). Defaulting to %s.\n", batchTimeoutStr, batchTimeout.String())
	}
	cfg.SuggestionBatchTimeout = batchTimeout

	cfg.ClassifierBaseURL = viper.GetString("CLASSIFIER_BASE_URL")
	if cfg.ClassifierBaseURL == "" {
		log.Println("Warning: CLASSIFIER_BASE_URL not set. ML classification is disabled; suggestions fall back to rules and history.")
	}
	cfg.ClassifierAPIKey = viper.GetString("CLASSIFIER_API_KEY")
	// Empty model version means the classifier serves whatever it considers current.
	cfg.ClassifierModelVersion = viper.GetString("CLASSIFIER_MODEL_VERSION")

	classifierTimeoutStr := viper.GetString("CLASSIFIER_TIMEOUT")
	classifierTimeout, err := time.ParseDuration(classifierTimeoutStr)
	if err != nil || classifierTimeout <= 0 {
		classifierTimeout = 3 * time.Second
		log.Printf("Warning: Invalid value for CLASSIFIER_TIMEOUT ('%s'). Defaulting to %s.\n", classifierTimeoutStr, classifierTimeout.String())
	}
	cfg.ClassifierTimeout = classifierTimeout

	brokersStr := viper.GetString("KAFKA_BROKERS")
	if brokersStr == "" {
		log.Println("Warning: KAFKA_BROKERS not set. Review decisions will not be published to the training feed.")
	} else {
		for _, broker := range strings.Split(brokersStr, ",") {
			if broker = strings.TrimSpace(broker); broker != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, broker)
			}
		}
	}
	cfg.KafkaTrainingTopic = viper.GetString("KAFKA_TRAINING_TOPIC")

	cfg.PosthogAPIKey = viper.GetString("POSTHOG_API_KEY")

	return cfg, nil
}

// nonNegativeFloat reads a float knob, falling back when the value is negative
// or unparseable. Ranker weights below zero would invert the candidate order.
func nonNegativeFloat(key string, fallback float64) float64 {
	v := viper.GetFloat64(key)
	if v < 0 {
		log.Printf("Warning: Invalid value for %s. Defaulting to %v.\n", key, fallback)
		return fallback
	}
	return v
}
