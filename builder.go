package authgate

import (
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/registryops/authgate/docstore"
	"github.com/registryops/authgate/token"
)

// Builder assembles an [Engine]. Each Builder may build once.
type Builder struct {
	config Config
	redis  *redis.Client
	store  docstore.Store

	mailer    Mailer
	auditSink AuditSink
	logger    *slog.Logger
	clock     Clock

	built bool
}

// New returns a Builder pre-loaded with the default configuration.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the whole configuration. The config is cloned, so
// later mutation of cfg by the caller has no effect.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis supplies the redis client backing the default document store.
func (b *Builder) WithRedis(client *redis.Client) *Builder {
	b.redis = client
	return b
}

// WithStore supplies a custom document store, bypassing WithRedis.
func (b *Builder) WithStore(store docstore.Store) *Builder {
	b.store = store
	return b
}

// WithMailer supplies the outbound email channel for passcode delivery.
func (b *Builder) WithMailer(m Mailer) *Builder {
	b.mailer = m
	return b
}

// WithAuditSink supplies the audit event destination. Audit must also be
// enabled in config to take effect.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithLogger supplies the structured logger. Defaults to a discard logger.
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithClock overrides the time source, used by tests for deterministic
// lockout and expiry behavior.
func (b *Builder) WithClock(clock Clock) *Builder {
	b.clock = clock
	return b
}

// WithMetricsEnabled toggles the metric registry.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the verify-latency histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration, wires the document store, and
// returns the engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	store := b.store
	if store == nil {
		if b.redis == nil {
			return nil, errors.New("redis client or document store required")
		}
		store = docstore.NewRedis(b.redis, engineCollections(cfg)...)
	}

	if b.mailer == nil && cfg.OTP.FixedCode == "" {
		return nil, errors.New("mailer required unless a fixed passcode is configured")
	}

	var tokens *token.Manager
	if cfg.Token.Enabled {
		manager, err := token.NewManager(token.Config{
			TTL:           cfg.Token.TTL,
			SigningMethod: token.SigningMethod(cfg.Token.SigningMethod),
			PrivateKey:    cfg.Token.PrivateKey,
			PublicKey:     cfg.Token.PublicKey,
			Issuer:        cfg.Token.Issuer,
			Audience:      cfg.Token.Audience,
		})
		if err != nil {
			return nil, err
		}
		tokens = manager
	}

	logger := b.logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	clock := b.clock
	if clock == nil {
		clock = time.Now
	}

	engine := &Engine{
		config:     cfg,
		store:      store,
		classifier: NewClassifier(cfg.Identifier.AllowedEmailDomains),
		mailer:     b.mailer,
		tokens:     tokens,
		audit:      newAuditDispatcher(cfg.Audit, b.auditSink),
		metrics:    NewMetrics(cfg.Metrics),
		logger:     logger,
		now:        clock,
	}

	b.built = true
	return engine, nil
}

// engineCollections derives the document store layout: the two collections
// the engine owns plus one per registered entity type, merged by name.
func engineCollections(cfg Config) []docstore.Collection {
	byName := map[string]*docstore.Collection{
		collectionAccounts: {
			Name:           collectionAccounts,
			PartitionField: "domain",
			IndexFields:    []string{"memberId", "email"},
		},
		collectionChallenges: {
			Name:        collectionChallenges,
			IndexFields: []string{"email"},
		},
	}

	for _, et := range cfg.Entities {
		coll, ok := byName[et.Collection]
		if !ok {
			coll = &docstore.Collection{Name: et.Collection}
			byName[et.Collection] = coll
		}
		if coll.PartitionField == "" {
			coll.PartitionField = et.PartitionField
		}
		if !containsString(coll.IndexFields, et.IDField) {
			coll.IndexFields = append(coll.IndexFields, et.IDField)
		}
	}

	out := make([]docstore.Collection, 0, len(byName))
	for _, coll := range byName {
		out = append(out, *coll)
	}
	return out
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
