// Package dialogflow provides a top-level convenience entry point for
// creating a dialogue engine with minimal boilerplate.
//
// Usage:
//
//	import "github.com/BaSui01/dialogflow"
//
//	e, err := dialogflow.New(dialogflow.WithClient(myClient))
//	e, err := dialogflow.New(
//	    dialogflow.WithClient(myClient),
//	    dialogflow.WithPersona(myPersona),
//	    dialogflow.WithFlowFiles("flows/returns.yaml"),
//	)
//
// For configuration-driven setups, [FromConfig] wires the session backend,
// the client middleware chain and metrics from a [config.Config].
package dialogflow

import (
	"golang.org/x/time/rate"

	"go.uber.org/zap"

	"github.com/BaSui01/dialogflow/config"
	"github.com/BaSui01/dialogflow/engine"
	"github.com/BaSui01/dialogflow/flow"
	"github.com/BaSui01/dialogflow/internal/metrics"
	"github.com/BaSui01/dialogflow/knowledge"
	"github.com/BaSui01/dialogflow/llm"
	"github.com/BaSui01/dialogflow/nlu"
	"github.com/BaSui01/dialogflow/respond"
	"github.com/BaSui01/dialogflow/session"
	"github.com/BaSui01/dialogflow/types"
)

// Option configures the engine created by [New].
type Option func(*engine.Options)

// WithClient sets the external text generation client.
func WithClient(c llm.Client) Option {
	return func(o *engine.Options) { o.Client = c }
}

// WithStore sets the session store. Defaults to an in-memory store.
func WithStore(s session.Store) Option {
	return func(o *engine.Options) { o.Store = s }
}

// WithSearcher sets the knowledge lookup backend.
func WithSearcher(k knowledge.Searcher) Option {
	return func(o *engine.Options) { o.Searcher = k }
}

// WithPersona sets the assistant persona.
func WithPersona(p types.Persona) Option {
	return func(o *engine.Options) { o.Persona = p }
}

// WithFlows replaces the built-in flow set.
func WithFlows(defs ...*flow.Definition) Option {
	return func(o *engine.Options) { o.Flows = defs }
}

// WithFlowFiles loads additional YAML flow definitions at construction.
func WithFlowFiles(paths ...string) Option {
	return func(o *engine.Options) { o.FlowFiles = append(o.FlowFiles, paths...) }
}

// WithIntentRouting replaces the intent→flow routing table.
func WithIntentRouting(table map[types.Intent]string) Option {
	return func(o *engine.Options) { o.IntentFlows = table }
}

// WithActions sets a pre-filled action registry for custom side-effect
// handlers.
func WithActions(r *flow.ActionRegistry) Option {
	return func(o *engine.Options) { o.Actions = r }
}

// WithPredicates sets the custom condition functions available to flows.
func WithPredicates(p map[string]flow.Predicate) Option {
	return func(o *engine.Options) { o.Predicates = p }
}

// WithLogger sets a custom zap logger. Defaults to zap.NewNop().
func WithLogger(logger *zap.Logger) Option {
	return func(o *engine.Options) { o.Logger = logger }
}

// WithMetricsNamespace enables Prometheus metrics under the namespace.
func WithMetricsNamespace(namespace string) Option {
	return func(o *engine.Options) { o.Metrics = metrics.NewCollector(namespace, o.Logger) }
}

// New creates a dialogue engine with minimal configuration. Every component
// has a working default; a nil client runs the engine in rule-based and
// template-fallback mode only.
func New(opts ...Option) (*engine.Engine, error) {
	o := engine.Options{}
	for _, opt := range opts {
		opt(&o)
	}
	return engine.New(o)
}

// FromConfig builds an engine from a loaded configuration: client middleware
// chain (logging, retry, rate limit, timeout), session backend, persona, and
// optional metrics. logger may be nil, in which case the config's log section
// builds one.
func FromConfig(cfg *config.Config, client llm.Client, logger *zap.Logger) (*engine.Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		var err error
		logger, err = cfg.Log.Build()
		if err != nil {
			return nil, err
		}
	}

	if client != nil {
		middlewares := []llm.Middleware{llm.WithLogging(logger)}
		if cfg.LLM.MaxRetries > 0 {
			middlewares = append(middlewares, llm.WithRetry(cfg.LLM.MaxRetries, cfg.LLM.RetryDelay))
		}
		if cfg.LLM.RateLimit > 0 {
			burst := cfg.LLM.RateBurst
			if burst < 1 {
				burst = 1
			}
			middlewares = append(middlewares,
				llm.WithRateLimit(rate.NewLimiter(rate.Limit(cfg.LLM.RateLimit), burst)))
		}
		if cfg.LLM.Timeout > 0 {
			middlewares = append(middlewares, llm.WithTimeout(cfg.LLM.Timeout))
		}
		client = llm.Chain(client, middlewares...)
	}

	var store session.Store
	if cfg.Session.Backend == "redis" {
		redisStore, err := session.NewRedisStore(session.RedisConfig{
			Addr:     cfg.Session.RedisAddr,
			Password: cfg.Session.RedisPassword,
			DB:       cfg.Session.RedisDB,
			TTL:      cfg.Session.TTL,
		}, logger)
		if err != nil {
			return nil, err
		}
		store = redisStore
	}

	persona := types.DefaultPersona()
	persona.Name = cfg.Persona.Name
	persona.Style = cfg.Persona.Style
	persona.Empathy = cfg.Persona.Empathy
	persona.Formality = cfg.Persona.Formality
	persona.Humor = cfg.Persona.Humor
	persona.Patience = cfg.Persona.Patience
	persona.Detail = cfg.Persona.Detail
	if len(cfg.Persona.Languages) > 0 {
		persona.Languages = cfg.Persona.Languages
	}

	opts := engine.Options{
		Client:  client,
		Store:   store,
		Persona: persona,
		Logger:  logger,
		NLU: nlu.Config{
			Merge:           nlu.MergePolicy(cfg.NLU.Merge),
			DefaultLanguage: cfg.NLU.DefaultLanguage,
		},
		Respond: respond.Config{
			HistoryTokenBudget: cfg.Respond.HistoryTokenBudget,
			Encoding:           cfg.Respond.Encoding,
			HumorProbability:   cfg.Respond.HumorProbability,
			MixMode:            respond.MixMode(cfg.Respond.MixMode),
		},
		FlowFiles: cfg.Flows.Paths,
	}
	if !cfg.Flows.Builtin {
		opts.Flows = []*flow.Definition{}
	}
	if cfg.Metrics.Enabled {
		opts.Metrics = metrics.NewCollector(cfg.Metrics.Namespace, logger)
	}
	return engine.New(opts)
}
