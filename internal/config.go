package internal

import (
	"fmt"
	"strings"
	"time"
)

type Config struct {
	LogLevel  string `env:"LOG_LEVEL,required=true"`
	Host      string `env:"HOST,default=localhost"`
	Port      int    `env:"PORT,default=8080"`
	DebugPort int    `env:"DEBUG_PORT,default=8081"`

	JWTSecret         string        `env:"JWT_SECRET"`
	AuthTokenDuration time.Duration `env:"AUTH_TOKEN_DURATION,required=true"`
	SecureCookie      bool          `env:"SECURE_COOKIE,default=false"`
	AllowedOrigins    string        `env:"ALLOWED_ORIGINS,default=*"`
	AuthRatePerMinute int           `env:"AUTH_RATE_PER_MINUTE,default=10"`
	APIRatePerMinute  int           `env:"API_RATE_PER_MINUTE,default=120"`

	BadgerFilepath string `env:"BADGER_FILEPATH,required=true"`
	BlugeFilepath  string `env:"BLUGE_FILEPATH,required=true"`
	LimitMessages  *int   `env:"LIMIT_MESSAGES"`

	UploadsDir     string `env:"UPLOADS_DIR,required=true"`
	MaxUploadBytes int64  `env:"MAX_UPLOAD_BYTES,default=10485760"`

	CharReplacement string `env:"CHARACTER_REPLACEMENT,required=true"`

	BufferSize           int           `env:"BUFFER_SIZE,required=true"`
	SinkTimeout          time.Duration `env:"SINK_TIMEOUT,required=true"`
	IngestionTimeout     time.Duration `env:"INGESTION_TIMEOUT,required=true"`
	MetricInterval       time.Duration `env:"METRIC_INTERVAL,required=true"`
	LatencyThreshold     time.Duration `env:"LATENCY_THRESHOLD,required=true"`
	LowCapacityThreshold int           `env:"LOW_CAPACITY_THRESHOLD,required=true"`

	IndexBatchSize     int           `env:"INDEX_BATCH_SIZE,default=64"`
	IndexFlushInterval time.Duration `env:"INDEX_FLUSH_INTERVAL,default=2s"`

	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT,default=10s"`
}

// Origins expands the comma-separated ALLOWED_ORIGINS value.
func (c Config) Origins() []string {
	parts := strings.Split(c.AllowedOrigins, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}

func CharacterRune(str string) (rune, error) {
	r := []rune(str)
	if len(r) != 1 {
		return 0, fmt.Errorf(
			"CHARACTER_REPLACEMENT must be a single character, got %q",
			str,
		)
	}
	return r[0], nil
}
