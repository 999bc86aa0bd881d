package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config holds all engine configuration. Every threshold and multiplier used
// by the classifier, planner, sizer and dynamic controllers is a flat key
// with a default, loadable from the environment.
type Config struct {
	LogLevel string
	Symbols  []string
	DryRun   bool

	// Broker bridge (ignored in dry-run mode).
	BridgeURL     string
	BridgeTimeout int // seconds

	// Market classifier.
	ADXStrongTrend  float64
	ADXWeakTrend    float64
	ConsStrongTrend float64
	ConsWeakTrend   float64
	VolatileRatio   float64
	ConsistencyBars int

	// Entry risk planner: per-regime stop multipliers and TP ladders.
	SLMultStrongTrend float64
	SLMultWeakTrend   float64
	SLMultVolatile    float64
	SLMultRanging     float64
	LadderStrongTrend string
	LadderWeakTrend   string
	LadderVolatile    string
	LadderRanging     string

	SRClampTouchMin  int
	SRClampProximity float64 // ATR multiples
	SRClampBuffer    float64 // ATR multiples

	// Confidence adjustments.
	ConfTrendAligned   float64
	ConfStrongTrend    float64
	ConfBeyondMAs      float64
	ConfPriceAction    float64
	ConfRangingPenalty float64
	ConfCounterTrend   float64
	ConfOpposingSR     float64
	MinTradeConfidence float64

	// Risk multiplier.
	MinRiskMult         float64
	MaxRiskMult         float64
	HighConfidenceBoost float64
	HighConfidenceBar   float64
	VolatileRiskCut     float64
	RangingRiskCut      float64
	LossStreakCut       float64
	LossStreakThreshold int

	// Sizing.
	RiskPct      float64 // percent of equity risked per trade
	MarginUseCap float64 // fraction of free margin the position may consume

	// Dynamic SL controller.
	SLReversalTightenATR float64
	SLCrossTightenATR    float64
	SLVolDeltaTrigger    float64
	SLSwingBufferATR     float64
	SLBreakBufferATR     float64
	SLADXDeltaTrigger    float64
	SLADXStepATR         float64
	SLMinMoveATR         float64
	SLPriceBufferATR     float64

	// Dynamic TP controller.
	TPBreakoutExtATR    float64
	TPStrongTrendFactor float64
	TPMomentumFactor    float64
	TPVolExpFactor      float64
	TPPatternFactor     float64
	TPSRClearExtATR     float64
	TPConsistencyFactor float64
	TPStrongConsistency float64
	TPStrongADX         float64
	TPMomentumRatio     float64
	TPVolExpandRatio    float64
	TPSRClearPct        float64
	TPConsistencyCross  float64
	TPMinIncrementPct   float64
	TPMaxStepRatio      float64
	MaxTPExtensions     int

	// Reconciliation loop.
	SLCheckInterval   time.Duration
	TPCheckInterval   time.Duration
	BrokerCallDelay   time.Duration
	BrokerRetries     int
	DegradedTickLimit int
	SnapshotLookback  int

	// Event sinks.
	TelegramToken  string
	TelegramChatID int64
	DatabaseURL    string
}

// Load initializes configuration from environment variables
func Load() (*Config, error) {
	// Load environment variables from .env file if present
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg(".env file not found, relying on actual environment variables")
	}

	cfg := &Config{
		LogLevel: getEnvWithDefault("LOG_LEVEL", "info"),
		Symbols:  splitList(getEnvWithDefault("SYMBOLS", "XAUUSD")),
		DryRun:   getEnvBoolWithDefault("DRY_RUN", true),

		BridgeURL:     getEnvWithDefault("BRIDGE_URL", "http://127.0.0.1:5001"),
		BridgeTimeout: getEnvIntWithDefault("BRIDGE_TIMEOUT", 30),

		ADXStrongTrend:  getEnvFloatWithDefault("ADX_STRONG_TREND", 25),
		ADXWeakTrend:    getEnvFloatWithDefault("ADX_WEAK_TREND", 15),
		ConsStrongTrend: getEnvFloatWithDefault("CONSISTENCY_STRONG_TREND", 0.70),
		ConsWeakTrend:   getEnvFloatWithDefault("CONSISTENCY_WEAK_TREND", 0.50),
		VolatileRatio:   getEnvFloatWithDefault("VOLATILE_RATIO", 1.3),
		ConsistencyBars: getEnvIntWithDefault("CONSISTENCY_BARS", 20),

		SLMultStrongTrend: getEnvFloatWithDefault("SL_MULT_STRONG_TREND", 2.5),
		SLMultWeakTrend:   getEnvFloatWithDefault("SL_MULT_WEAK_TREND", 2.0),
		SLMultVolatile:    getEnvFloatWithDefault("SL_MULT_VOLATILE", 3.0),
		SLMultRanging:     getEnvFloatWithDefault("SL_MULT_RANGING", 1.5),
		LadderStrongTrend: getEnvWithDefault("LADDER_STRONG_TREND", "1.5:30,3.0:30,5.0:40"),
		LadderWeakTrend:   getEnvWithDefault("LADDER_WEAK_TREND", "1.5:40,2.0:35,3.0:25"),
		LadderVolatile:    getEnvWithDefault("LADDER_VOLATILE", "1.0:50,1.8:30,3.0:20"),
		LadderRanging:     getEnvWithDefault("LADDER_RANGING", "1.0:50,1.5:35,2.0:15"),

		SRClampTouchMin:  getEnvIntWithDefault("SR_CLAMP_TOUCH_MIN", 2),
		SRClampProximity: getEnvFloatWithDefault("SR_CLAMP_PROXIMITY_ATR", 1.0),
		SRClampBuffer:    getEnvFloatWithDefault("SR_CLAMP_BUFFER_ATR", 0.5),

		ConfTrendAligned:   getEnvFloatWithDefault("CONF_TREND_ALIGNED", 0.20),
		ConfStrongTrend:    getEnvFloatWithDefault("CONF_STRONG_TREND", 0.20),
		ConfBeyondMAs:      getEnvFloatWithDefault("CONF_BEYOND_MAS", 0.15),
		ConfPriceAction:    getEnvFloatWithDefault("CONF_PRICE_ACTION", 0.15),
		ConfRangingPenalty: getEnvFloatWithDefault("CONF_RANGING_PENALTY", 0.15),
		ConfCounterTrend:   getEnvFloatWithDefault("CONF_COUNTER_TREND", 0.20),
		ConfOpposingSR:     getEnvFloatWithDefault("CONF_OPPOSING_SR", 0.20),
		MinTradeConfidence: getEnvFloatWithDefault("MIN_TRADE_CONFIDENCE", 0.60),

		MinRiskMult:         getEnvFloatWithDefault("MIN_RISK_MULT", 0.3),
		MaxRiskMult:         getEnvFloatWithDefault("MAX_RISK_MULT", 1.5),
		HighConfidenceBoost: getEnvFloatWithDefault("HIGH_CONFIDENCE_BOOST", 1.3),
		HighConfidenceBar:   getEnvFloatWithDefault("HIGH_CONFIDENCE_BAR", 0.80),
		VolatileRiskCut:     getEnvFloatWithDefault("VOLATILE_RISK_CUT", 0.7),
		RangingRiskCut:      getEnvFloatWithDefault("RANGING_RISK_CUT", 0.8),
		LossStreakCut:       getEnvFloatWithDefault("LOSS_STREAK_CUT", 0.6),
		LossStreakThreshold: getEnvIntWithDefault("LOSS_STREAK_THRESHOLD", 3),

		RiskPct:      getEnvFloatWithDefault("RISK_PCT", 0.3),
		MarginUseCap: getEnvFloatWithDefault("MARGIN_USE_CAP", 0.8),

		SLReversalTightenATR: getEnvFloatWithDefault("SL_REVERSAL_TIGHTEN_ATR", 0.3),
		SLCrossTightenATR:    getEnvFloatWithDefault("SL_CROSS_TIGHTEN_ATR", 0.6),
		SLVolDeltaTrigger:    getEnvFloatWithDefault("SL_VOL_DELTA_TRIGGER", 0.30),
		SLSwingBufferATR:     getEnvFloatWithDefault("SL_SWING_BUFFER_ATR", 0.2),
		SLBreakBufferATR:     getEnvFloatWithDefault("SL_BREAK_BUFFER_ATR", 0.5),
		SLADXDeltaTrigger:    getEnvFloatWithDefault("SL_ADX_DELTA_TRIGGER", 5.0),
		SLADXStepATR:         getEnvFloatWithDefault("SL_ADX_STEP_ATR", 0.25),
		SLMinMoveATR:         getEnvFloatWithDefault("SL_MIN_MOVE_ATR", 0.1),
		SLPriceBufferATR:     getEnvFloatWithDefault("SL_PRICE_BUFFER_ATR", 0.05),

		TPBreakoutExtATR:    getEnvFloatWithDefault("TP_BREAKOUT_EXT_ATR", 2.0),
		TPStrongTrendFactor: getEnvFloatWithDefault("TP_STRONG_TREND_FACTOR", 0.5),
		TPMomentumFactor:    getEnvFloatWithDefault("TP_MOMENTUM_FACTOR", 0.4),
		TPVolExpFactor:      getEnvFloatWithDefault("TP_VOL_EXP_FACTOR", 0.3),
		TPPatternFactor:     getEnvFloatWithDefault("TP_PATTERN_FACTOR", 0.2),
		TPSRClearExtATR:     getEnvFloatWithDefault("TP_SR_CLEAR_EXT_ATR", 1.5),
		TPConsistencyFactor: getEnvFloatWithDefault("TP_CONSISTENCY_FACTOR", 0.2),
		TPStrongConsistency: getEnvFloatWithDefault("TP_STRONG_CONSISTENCY", 0.85),
		TPStrongADX:         getEnvFloatWithDefault("TP_STRONG_ADX", 30),
		TPMomentumRatio:     getEnvFloatWithDefault("TP_MOMENTUM_RATIO", 1.5),
		TPVolExpandRatio:    getEnvFloatWithDefault("TP_VOL_EXPAND_RATIO", 0.30),
		TPSRClearPct:        getEnvFloatWithDefault("TP_SR_CLEAR_PCT", 0.001),
		TPConsistencyCross:  getEnvFloatWithDefault("TP_CONSISTENCY_CROSS", 0.80),
		TPMinIncrementPct:   getEnvFloatWithDefault("TP_MIN_INCREMENT_PCT", 0.005),
		TPMaxStepRatio:      getEnvFloatWithDefault("TP_MAX_STEP_RATIO", 1.0),
		MaxTPExtensions:     getEnvIntWithDefault("MAX_TP_EXTENSIONS", 5),

		SLCheckInterval:   getEnvDurationWithDefault("SL_CHECK_INTERVAL", 60*time.Second),
		TPCheckInterval:   getEnvDurationWithDefault("TP_CHECK_INTERVAL", 60*time.Second),
		BrokerCallDelay:   getEnvDurationWithDefault("BROKER_CALL_DELAY", 500*time.Millisecond),
		BrokerRetries:     getEnvIntWithDefault("BROKER_RETRIES", 3),
		DegradedTickLimit: getEnvIntWithDefault("DEGRADED_TICK_LIMIT", 5),
		SnapshotLookback:  getEnvIntWithDefault("SNAPSHOT_LOOKBACK", 100),

		TelegramToken:  os.Getenv("TELEGRAM_TOKEN"),
		TelegramChatID: getEnvInt64WithDefault("TELEGRAM_CHAT_ID", 0),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
	}

	return cfg, nil
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if s := strings.TrimSpace(part); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Helper functions for environment variable handling
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntWithDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64WithDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatWithDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBoolWithDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func getEnvDurationWithDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
