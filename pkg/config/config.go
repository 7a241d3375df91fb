package config

// Feed definition feed_service YAML structure
type Feed struct {
	Port     string         `mapstructure:"port"`
	PageSize int            `mapstructure:"page_size"`
	Mongo    DatabaseConfig `mapstructure:"mongo"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Postgres DatabaseConfig `mapstructure:"pg"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	MinIO    MinIOConfig    `mapstructure:"minio"`
}

// PushWorker definition push_worker YAML structure
type PushWorker struct {
	Postgres DatabaseConfig `mapstructure:"pg"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Push     PushConfig     `mapstructure:"push"`
}

// PushConfig definition push transport setting
type PushConfig struct {
	URL       string `mapstructure:"url"`
	ServerKey string `mapstructure:"server_key"`
	TimeoutMS int    `mapstructure:"timeout_ms"`
}

// KafkaConfig definition kafka setting
type KafkaConfig struct {
	Brokers       []string `mapstructure:"brokers"`
	Topic         string   `mapstructure:"topic"`
	GroupID       string   `mapstructure:"group_id"`
	RetryInterval int      `mapstructure:"retry_interval"`
	RetryCount    int      `mapstructure:"retry_count"`
}

// MinIOConfig definition minio setting
type MinIOConfig struct {
	Endpoint      string `mapstructure:"endpoint"`
	User          string `mapstructure:"user"`
	Password      string `mapstructure:"password"`
	Bucket        string `mapstructure:"bucket"`
	UseSSL        bool   `mapstructure:"use_ssl"`
	RetryInterval int    `mapstructure:"retry_interval"`
	RetryCount    int    `mapstructure:"retry_count"`
}

// RedisConfig definition redis setting
type RedisConfig struct {
	RedisDB int `mapstructure:"redis_db"`
}

// DatabaseConfig definition db setting
type DatabaseConfig struct {
	Host          string `mapstructure:"host"`
	Port          int    `mapstructure:"port"`
	User          string `mapstructure:"user"`
	Password      string `mapstructure:"password"`
	Database      string `mapstructure:"database"`
	RetryInterval int    `mapstructure:"retry_interval"`
	RetryCount    int    `mapstructure:"retry_count"`
}
