package model

// ================ Config ================
type ConversationConfig struct {
	TTL     string `envconfig:"CONVERSATION_TTL" default:"168h"`
	History struct {
		MaxMessages int `envconfig:"CONVERSATION_HISTORY_MAX_MESSAGES" default:"10"`
	}
}

type GraphConfig struct {
	// MaxSteps bounds node executions per turn so a future cyclic edge can
	// never loop a turn indefinitely.
	MaxSteps int `envconfig:"GRAPH_MAX_STEPS" default:"150"`
	// RetrievalK is the number of similarity-search results fetched per turn.
	RetrievalK int `envconfig:"GRAPH_RETRIEVAL_K" default:"1"`
}

type CacheConfig struct {
	// DefaultTTL applies to similarity, sql and schema namespaces.
	DefaultTTL string `envconfig:"CACHE_DEFAULT_TTL" default:"24h"`
	// QueryTTL applies to full-turn snapshots in query_cache.
	QueryTTL string `envconfig:"CACHE_QUERY_TTL" default:"1h"`
}

type RewriteModelConfig struct {
	Model       string  `envconfig:"REWRITE_MODEL" default:"gemini-2.5-flash"`
	MaxTokens   int     `envconfig:"REWRITE_MAX_TOKENS" default:"500"`
	Temperature float32 `envconfig:"REWRITE_TEMPERATURE" default:"0"`
}

type SQLModelConfig struct {
	Model       string  `envconfig:"SQL_MODEL" default:"gemini-2.5-flash"`
	MaxTokens   int     `envconfig:"SQL_MAX_TOKENS" default:"1000"`
	Temperature float32 `envconfig:"SQL_TEMPERATURE" default:"0"`
}

type ReportModelConfig struct {
	Model       string  `envconfig:"REPORT_MODEL" default:"gemini-2.5-flash"`
	MaxTokens   int     `envconfig:"REPORT_MAX_TOKENS" default:"4000"`
	Temperature float32 `envconfig:"REPORT_TEMPERATURE" default:"0.4"`
}

type SearchConfig struct {
	URL            string `envconfig:"QDRANT_URL" default:"http://localhost:6333"`
	APIKey         string `envconfig:"QDRANT_API_KEY"`
	Collection     string `envconfig:"QDRANT_COLLECTION" default:"property_columns"`
	EmbeddingModel string `envconfig:"EMBEDDING_MODEL" default:"gemini-embedding-001"`
}

type EmailConfig struct {
	SMTPHost string `envconfig:"EMAIL_SMTP_HOST"`
	SMTPPort int    `envconfig:"EMAIL_SMTP_PORT" default:"587"`
	Sender   string `envconfig:"EMAIL_SENDER"`
	Password string `envconfig:"EMAIL_PASSWORD"`
	Subject  string `envconfig:"EMAIL_SUBJECT" default:"Real Estate Report"`
}

type StorageConfig struct {
	// Table holding the property listings the assistant answers questions about.
	PropertiesTable string `envconfig:"STORAGE_PROPERTIES_TABLE" default:"properties"`
	MaxRows         int    `envconfig:"STORAGE_MAX_ROWS" default:"200"`
}
