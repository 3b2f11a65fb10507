package db

import "time"

// Tenant maps rollup.tenants. Every row in the ingestion tables hangs off a
// tenant; there is no cross-tenant sharing anywhere.
type Tenant struct {
	TenantID   int64     `gorm:"column:tenant_id;primaryKey;autoIncrement"`
	TenantUUID string    `gorm:"column:tenant_uuid;type:uuid;not null;default:gen_random_uuid();unique"`
	Slug       string    `gorm:"column:slug;type:text;not null;unique"`
	Name       string    `gorm:"column:name;type:text;not null"`
	CreatedAt  time.Time `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
	UpdatedAt  time.Time `gorm:"column:updated_at;type:timestamptz;not null;default:now()"`
}

func (Tenant) TableName() string { return "rollup.tenants" }

// Source maps rollup.sources: one subscribed feed plus its polling cursor
// (etag / last_modified) and circuit-breaker state.
type Source struct {
	SourceID            int64      `gorm:"column:source_id;primaryKey;autoIncrement"`
	SourceUUID          string     `gorm:"column:source_uuid;type:uuid;not null;default:gen_random_uuid();unique"`
	TenantID            int64      `gorm:"column:tenant_id;type:bigint;not null;index:idx_sources_tenant_feed,unique,where:deleted_at IS NULL"`
	FeedURL             string     `gorm:"column:feed_url;type:text;not null;index:idx_sources_tenant_feed,unique,where:deleted_at IS NULL"`
	Title               string     `gorm:"column:title;type:text;not null;default:''"`
	SiteURL             *string    `gorm:"column:site_url;type:text"`
	ETag                *string    `gorm:"column:etag;type:text"`
	LastModified        *string    `gorm:"column:last_modified;type:text"`
	LastPolledAt        *time.Time `gorm:"column:last_polled_at;type:timestamptz"`
	LastSuccessAt       *time.Time `gorm:"column:last_success_at;type:timestamptz"`
	ConsecutiveFailures int        `gorm:"column:consecutive_failures;type:integer;not null;default:0"`
	CircuitOpenUntil    *time.Time `gorm:"column:circuit_open_until;type:timestamptz"`
	LastError           *string    `gorm:"column:last_error;type:text"`
	Weight              int16      `gorm:"column:weight;type:smallint;not null;default:0"`
	Folder              *string    `gorm:"column:folder;type:text"`
	Muted               bool       `gorm:"column:muted;type:boolean;not null;default:false"`
	DeletedAt           *time.Time `gorm:"column:deleted_at;type:timestamptz"`
	CreatedAt           time.Time  `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
	UpdatedAt           time.Time  `gorm:"column:updated_at;type:timestamptz;not null;default:now()"`
}

func (Source) TableName() string { return "rollup.sources" }

// Item maps rollup.items. Identity is enforced by two partial unique indexes
// created in post_automigrate.sql: (tenant, source, guid) when the feed
// supplies a guid, otherwise (tenant, source, canonical_url, published_at).
type Item struct {
	ItemID         int64      `gorm:"column:item_id;primaryKey;autoIncrement"`
	ItemUUID       string     `gorm:"column:item_uuid;type:uuid;not null;default:gen_random_uuid();unique"`
	TenantID       int64      `gorm:"column:tenant_id;type:bigint;not null"`
	SourceID       int64      `gorm:"column:source_id;type:bigint;not null"`
	GUID           *string    `gorm:"column:guid;type:text"`
	CanonicalURL   string     `gorm:"column:canonical_url;type:text;not null"`
	Title          string     `gorm:"column:title;type:text;not null"`
	Author         *string    `gorm:"column:author;type:text"`
	Summary        string     `gorm:"column:summary;type:text;not null;default:''"`
	ContentText    string     `gorm:"column:content_text;type:text;not null;default:''"`
	ImageURL       *string    `gorm:"column:image_url;type:text"`
	Language       string     `gorm:"column:language;type:text;not null;default:und"`
	PublishedAt    *time.Time `gorm:"column:published_at;type:timestamptz"`
	FetchedAt      time.Time  `gorm:"column:fetched_at;type:timestamptz;not null"`
	Simhash        *int64     `gorm:"column:simhash;type:bigint"`
	TokenCount     int        `gorm:"column:token_count;type:integer;not null;default:0"`
	AISummary      *string    `gorm:"column:ai_summary;type:text"`
	AISummaryModel *string    `gorm:"column:ai_summary_model;type:text"`
	DeletedAt      *time.Time `gorm:"column:deleted_at;type:timestamptz"`
	CreatedAt      time.Time  `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
	UpdatedAt      time.Time  `gorm:"column:updated_at;type:timestamptz;not null;default:now()"`
}

func (Item) TableName() string { return "rollup.items" }

// Cluster maps rollup.clusters: a group of near-duplicate items for one
// tenant. Membership is append-only; clusters are never merged automatically.
type Cluster struct {
	ClusterID            int64      `gorm:"column:cluster_id;primaryKey;autoIncrement"`
	ClusterUUID          string     `gorm:"column:cluster_uuid;type:uuid;not null;default:gen_random_uuid();unique"`
	TenantID             int64      `gorm:"column:tenant_id;type:bigint;not null"`
	RepresentativeItemID *int64     `gorm:"column:representative_item_id;type:bigint"`
	Title                string     `gorm:"column:title;type:text;not null"`
	FirstSeenAt          time.Time  `gorm:"column:first_seen_at;type:timestamptz;not null"`
	LastSeenAt           time.Time  `gorm:"column:last_seen_at;type:timestamptz;not null"`
	MemberCount          int        `gorm:"column:member_count;type:integer;not null;default:0"`
	Status               string     `gorm:"column:status;type:text;not null;default:active"`
	DigestedAt           *time.Time `gorm:"column:digested_at;type:timestamptz"`
	DeletedAt            *time.Time `gorm:"column:deleted_at;type:timestamptz"`
	CreatedAt            time.Time  `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
	UpdatedAt            time.Time  `gorm:"column:updated_at;type:timestamptz;not null;default:now()"`
}

func (Cluster) TableName() string { return "rollup.clusters" }

// ClusterMember maps rollup.cluster_members. The unique constraint on item_id
// guarantees an item belongs to at most one cluster.
type ClusterMember struct {
	ClusterID         int64     `gorm:"column:cluster_id;type:bigint;primaryKey"`
	ItemID            int64     `gorm:"column:item_id;type:bigint;primaryKey;unique"`
	ClusterMemberUUID string    `gorm:"column:cluster_member_uuid;type:uuid;not null;default:gen_random_uuid();unique"`
	HammingDistance   *int      `gorm:"column:hamming_distance;type:integer"`
	JaccardSimilarity *float64  `gorm:"column:jaccard_similarity;type:double precision"`
	MatchedAt         time.Time `gorm:"column:matched_at;type:timestamptz;not null;default:now()"`
}

func (ClusterMember) TableName() string { return "rollup.cluster_members" }

// Digest maps rollup.digests: one generated digest run for a tenant.
type Digest struct {
	DigestID         int64     `gorm:"column:digest_id;primaryKey;autoIncrement"`
	DigestUUID       string    `gorm:"column:digest_uuid;type:uuid;not null;default:gen_random_uuid();unique"`
	TenantID         int64     `gorm:"column:tenant_id;type:bigint;not null"`
	Trigger          string    `gorm:"column:trigger_kind;type:text;not null"`
	GeneratedAt      time.Time `gorm:"column:generated_at;type:timestamptz;not null"`
	WindowStart      time.Time `gorm:"column:window_start;type:timestamptz;not null"`
	WindowEnd        time.Time `gorm:"column:window_end;type:timestamptz;not null"`
	ClusterCount     int       `gorm:"column:cluster_count;type:integer;not null;default:0"`
	RenderedMarkdown string    `gorm:"column:rendered_markdown;type:text;not null;default:''"`
	CreatedAt        time.Time `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
}

func (Digest) TableName() string { return "rollup.digests" }

// DigestEntry maps rollup.digest_entries: one cluster placed in one digest
// section at a rank.
type DigestEntry struct {
	DigestEntryID   int64     `gorm:"column:digest_entry_id;primaryKey;autoIncrement"`
	DigestEntryUUID string    `gorm:"column:digest_entry_uuid;type:uuid;not null;default:gen_random_uuid();unique"`
	DigestID        int64     `gorm:"column:digest_id;type:bigint;not null;index:idx_digest_entries_digest_cluster,unique"`
	ClusterID       int64     `gorm:"column:cluster_id;type:bigint;not null;index:idx_digest_entries_digest_cluster,unique"`
	Section         string    `gorm:"column:section;type:text;not null"`
	Rank            int       `gorm:"column:rank;type:integer;not null"`
	OneLiner        string    `gorm:"column:one_liner;type:text;not null"`
	CreatedAt       time.Time `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
}

func (DigestEntry) TableName() string { return "rollup.digest_entries" }

// ReadState maps rollup.read_states: per-cluster read/saved/not-interested
// markers. A cluster marked read or not-interested is excluded from digest
// candidate selection; absence of a row means unread.
type ReadState struct {
	TenantID      int64     `gorm:"column:tenant_id;type:bigint;primaryKey"`
	ClusterID     int64     `gorm:"column:cluster_id;type:bigint;primaryKey"`
	Read          bool      `gorm:"column:read;type:boolean;not null;default:false"`
	Saved         bool      `gorm:"column:saved;type:boolean;not null;default:false"`
	NotInterested bool      `gorm:"column:not_interested;type:boolean;not null;default:false"`
	UpdatedAt     time.Time `gorm:"column:updated_at;type:timestamptz;not null;default:now()"`
}

func (ReadState) TableName() string { return "rollup.read_states" }

// TenantSetting maps rollup.tenant_settings, a per-tenant key/value store for
// knobs like summarization on/off and the daily token budget.
type TenantSetting struct {
	TenantID  int64     `gorm:"column:tenant_id;type:bigint;primaryKey"`
	Key       string    `gorm:"column:key;type:text;primaryKey"`
	Value     string    `gorm:"column:value;type:text;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;type:timestamptz;not null;default:now()"`
}

func (TenantSetting) TableName() string { return "rollup.tenant_settings" }

// AIUsage maps rollup.ai_usage: per-call token accounting for the summarizer
// budget governor.
type AIUsage struct {
	AIUsageID        int64     `gorm:"column:ai_usage_id;primaryKey;autoIncrement"`
	AIUsageUUID      string    `gorm:"column:ai_usage_uuid;type:uuid;not null;default:gen_random_uuid();unique"`
	TenantID         int64     `gorm:"column:tenant_id;type:bigint;not null"`
	Model            string    `gorm:"column:model;type:text;not null"`
	PromptTokens     int       `gorm:"column:prompt_tokens;type:integer;not null;default:0"`
	CompletionTokens int       `gorm:"column:completion_tokens;type:integer;not null;default:0"`
	LatencyMS        *int      `gorm:"column:latency_ms;type:integer"`
	UsageDay         time.Time `gorm:"column:usage_day;type:date;not null"`
	CreatedAt        time.Time `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
}

func (AIUsage) TableName() string { return "rollup.ai_usage" }

func autoMigrateModels() []any {
	return []any{
		&Tenant{},
		&Source{},
		&Item{},
		&Cluster{},
		&ClusterMember{},
		&Digest{},
		&DigestEntry{},
		&ReadState{},
		&TenantSetting{},
		&AIUsage{},
	}
}
