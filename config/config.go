package config

import (
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	postgres_wrapper "github.com/spotforge/matchengine/pkg/infra/postgres"
	redis_wrapper "github.com/spotforge/matchengine/pkg/transport/redis"
)

// MarketSeed configures one market the engine creates on a cold start.
type MarketSeed struct {
	Market     string `yaml:"market"`
	BaseAsset  string `yaml:"base_asset"`
	QuoteAsset string `yaml:"quote_asset"`
	STPMode    string `yaml:"stp_mode"` // CANCEL_NEWEST | CANCEL_OLDEST | CANCEL_BOTH
}

// SnapshotConfig controls the engine's periodic persistence.
type SnapshotConfig struct {
	Dir          string `yaml:"dir"`
	IntervalSeconds int `yaml:"interval_seconds"`
	WithSnapshot bool   `yaml:"with_snapshot"`
}

// KafkaConfig configures the persistence channel producer.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
}

// AppConfig is the engine process's full configuration surface.
type AppConfig struct {
	ServiceName string `yaml:"service_name"`

	Redis    *redis_wrapper.Config        `yaml:"redis"`
	Kafka    *KafkaConfig                 `yaml:"kafka"`
	EngineDB *postgres_wrapper.PostgresConfig `yaml:"engine_db"`

	Markets  []MarketSeed   `yaml:"markets"`
	Snapshot SnapshotConfig `yaml:"snapshot"`
}

// Load load config from file and environment variables.
func Load(filePath string) (*AppConfig, error) {
	if len(filePath) == 0 {
		filePath = os.Getenv("CONFIG_FILE")
	}

	fields := []interface{}{
		"func",
		"config.readFromFile",
		"filePath",
		filePath,
	}

	sugar := zap.S().With(fields...)

	sugar.Debug("Load config...")
	zap.S().Debugf("CONFIG_FILE=%v", filePath)

	configBytes, err := os.ReadFile(filePath)
	if err != nil {
		sugar.Error("Failed to load config file")
		return nil, err
	}
	configBytes = []byte(os.ExpandEnv(string(configBytes)))

	cfg := &AppConfig{}

	err = yaml.Unmarshal(configBytes, cfg)
	if err != nil {
		sugar.Error("Failed to parse config file")
		return nil, err
	}

	zap.S().Debugf("config: %+v", cfg)

	return cfg, nil
}
