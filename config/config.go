package config

import "time"

type Config struct {
	AppName                       string   `env:"APP_NAME" env-default:"coldcase-api"`
	AppVersion                    string   `env:"APP_VERSION" env-default:"dev"`
	Port                          int      `env:"PORT" env-default:"3006"`
	LogLevel                      string   `env:"LOG_LEVEL" env-default:"info"`
	PrettyLogs                    bool     `env:"PRETTY_LOGS" env-default:"false"`
	HttpServerWriteTimeoutSeconds int      `env:"HTTP_SERVER_WRITE_TIMEOUT_SECONDS" env-default:"10"`
	HttpServerReadTimeoutSeconds  int      `env:"HTTP_SERVER_READ_TIMEOUT_SECONDS" env-default:"10"`
	HttpServerIdleTimeoutSeconds  int      `env:"HTTP_SERVER_IDLE_TIMEOUT_SECONDS" env-default:"10"`
	MaxHeaderBytes                int      `env:"HTTP_SERVER_MAX_HEADER_BYTES" env-default:"64000"` // 64KB
	ReadHeaderTimeoutSeconds      int      `env:"HTTP_SERVER_READ_HEADER_TIMEOUT_SECONDS" env-default:"10"`
	AllowOrigins                  []string `env:"HTTP_SERVER_ALLOW_ORIGINS" env-default:"*"`
	AllowMethods                  []string `env:"HTTP_SERVER_ALLOW_METHODS" env-default:"GET,POST,PUT,DELETE"`
	StartupMaxAttempts            int      `env:"STARTUP_MAX_ATTEMPTS" env-default:"5"`

	// Tracing
	TracingEnabled bool   `env:"TRACING_ENABLED" env-default:"false"`
	OTLPEndpoint   string `env:"OTLP_ENDPOINT" env-default:"localhost:4317"`
	OTLPProtocol   string `env:"OTLP_PROTOCOL" env-default:"grpc"`
	OTLPInsecure   bool   `env:"OTLP_INSECURE" env-default:"true"`

	// PostgreSQL
	DatabaseDriver                string        `env:"DB_DRIVER" env-default:"postgres"`
	DatabaseHost                  string        `env:"DB_HOST" env-default:""`
	DatabasePort                  string        `env:"DB_PORT" env-default:"5432"`
	DatabaseUserName              string        `env:"DB_USER_NAME" env-default:""`
	DatabasePassword              string        `env:"DB_PASSWORD" env-default:""`
	DatabaseName                  string        `env:"DB_NAME" env-default:"coldcase"`
	DatabaseSSLMode               string        `env:"DB_SQL_MODE" env-default:"disable"`
	DatabaseReconnectRetryCount   int           `env:"DB_RECONNECT_RETRY_COUNT" env-default:"3"`
	DatabaseMaxOpenConns          int           `env:"DB_MAX_OPEN_CONNS" env-default:"25"`
	DatabaseMaxIdleConns          int           `env:"DB_MAX_IDLE_CONNS" env-default:"10"`
	DatabaseConnMaxLifetime       time.Duration `env:"DB_CONN_MAX_LIFETIME" env-default:"10s"`
	DatabaseMigrationFolderPath   string        `env:"DB_MIGRATION_FOLDER_PATH" env-default:"db/pg"`
	DatabaseMigrationVersion      int           `env:"DB_MIGRATION_VERSION" env-default:"0"`
	DatabaseMigrationForce        int           `env:"DB_MIGRATION_FORCE" env-default:"0"`
	DatabaseMigrationAutoRollback bool          `env:"DB_MIGRATION_AUTO_ROLLBACK" env-default:"true"`

	// Redis (per-profile locks, signal dedupe, recompute queue)
	RedisHost     string `env:"REDIS_HOST" env-default:"localhost"`
	RedisPort     int    `env:"REDIS_PORT" env-default:"6379"`
	RedisPassword string `env:"REDIS_PASSWORD" env-default:""`
	RedisDB       int    `env:"REDIS_DB" env-default:"0"`

	// Recompute queue (Redis Streams)
	RecomputeStream        string        `env:"RECOMPUTE_STREAM" env-default:"coldcase:recompute"`
	RecomputeConsumerGroup string        `env:"RECOMPUTE_CONSUMER_GROUP" env-default:"coldcase-workers"`
	RecomputeConsumerName  string        `env:"RECOMPUTE_CONSUMER_NAME" env-default:""`
	RecomputeWorkerCount   int           `env:"RECOMPUTE_WORKER_COUNT" env-default:"4"`
	RecomputeClaimMinIdle  time.Duration `env:"RECOMPUTE_CLAIM_MIN_IDLE" env-default:"60s"`
	ProfileLockTTL         time.Duration `env:"PROFILE_LOCK_TTL" env-default:"30s"`
	SignalDedupeTTL        time.Duration `env:"SIGNAL_DEDUPE_TTL" env-default:"24h"`

	// Graph Database (Neo4j)
	GraphDBEnabled  bool   `env:"GRAPH_DB_ENABLED" env-default:"true"`
	GraphDBHost     string `env:"GRAPH_DB_HOST" env-default:"localhost"`
	GraphDBPort     int    `env:"GRAPH_DB_PORT" env-default:"7687"`
	GraphDBUser     string `env:"GRAPH_DB_USER" env-default:""`
	GraphDBPassword string `env:"GRAPH_DB_PASSWORD" env-default:""`

	// Kafka signal intake
	KafkaBrokers           []string `env:"KAFKA_BROKERS" env-default:"localhost:9092"`
	KafkaConsumerGroup     string   `env:"KAFKA_CONSUMER_GROUP" env-default:"coldcase-consumer"`
	KafkaConsumerEnabled   bool     `env:"KAFKA_CONSUMER_ENABLED" env-default:"true"`
	KafkaCaseActivityTopic string   `env:"KAFKA_CASE_ACTIVITY_TOPIC" env-default:"locate.cases.activity"`
	KafkaEvidenceTopic     string   `env:"KAFKA_EVIDENCE_TOPIC" env-default:"locate.evidence.added"`
	KafkaTipsTopic         string   `env:"KAFKA_TIPS_TOPIC" env-default:"locate.tips.received"`
	KafkaLeadsTopic        string   `env:"KAFKA_LEADS_TOPIC" env-default:"locate.leads.received"`
	KafkaDNAResultsTopic   string   `env:"KAFKA_DNA_RESULTS_TOPIC" env-default:"locate.dna.results"`

	// Kafka event emission
	KafkaRevivalTriggerTopic   string `env:"KAFKA_REVIVAL_TRIGGER_TOPIC" env-default:"coldcase.revival-triggers"`
	KafkaCampaignDispatchTopic string `env:"KAFKA_CAMPAIGN_DISPATCH_TOPIC" env-default:"coldcase.campaign.dispatch"`
	KafkaLifecycleTopic        string `env:"KAFKA_LIFECYCLE_TOPIC" env-default:"coldcase.lifecycle"`
	KafkaBatchSize             int    `env:"KAFKA_BATCH_SIZE" env-default:"100"`
	KafkaBatchTimeout          int    `env:"KAFKA_BATCH_TIMEOUT_MS" env-default:"100"`
	KafkaRequiredAcks          int    `env:"KAFKA_REQUIRED_ACKS" env-default:"1"`
	KafkaCompression           string `env:"KAFKA_COMPRESSION" env-default:"snappy"`

	// Classification thresholds (days)
	LeadThresholdDays     int `env:"CLASSIFY_LEAD_THRESHOLD_DAYS" env-default:"90"`
	TipThresholdDays      int `env:"CLASSIFY_TIP_THRESHOLD_DAYS" env-default:"60"`
	ActivityThresholdDays int `env:"CLASSIFY_ACTIVITY_THRESHOLD_DAYS" env-default:"180"`

	// Review scheduling
	PeriodicDueWindowDays  int `env:"REVIEW_PERIODIC_DUE_WINDOW_DAYS" env-default:"30"`
	TriggeredDueWindowDays int `env:"REVIEW_TRIGGERED_DUE_WINDOW_DAYS" env-default:"7"`

	// Scoring
	AnniversaryWindowDays int `env:"SCORE_ANNIVERSARY_WINDOW_DAYS" env-default:"30"`

	// Pattern matching
	PatternRadiusKm      float64 `env:"PATTERN_RADIUS_KM" env-default:"50"`
	PatternMinConfidence string  `env:"PATTERN_MIN_CONFIDENCE" env-default:"medium"`
	PatternScanPageSize  int     `env:"PATTERN_SCAN_PAGE_SIZE" env-default:"200"`

	// Batch pass
	BatchPassEnabled    bool          `env:"BATCH_PASS_ENABLED" env-default:"true"`
	BatchPassInterval   time.Duration `env:"BATCH_PASS_INTERVAL" env-default:"24h"`
	BatchSize           int           `env:"BATCH_SIZE" env-default:"200"`
	BatchCaseTimeout    time.Duration `env:"BATCH_CASE_TIMEOUT" env-default:"30s"`
	BatchWorkerCount    int           `env:"BATCH_WORKER_COUNT" env-default:"8"`
	AnniversaryLeadDays int           `env:"CAMPAIGN_ANNIVERSARY_LEAD_DAYS" env-default:"30"`
}
