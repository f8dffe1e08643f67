package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/pprof"
	"net/url"
	"os"
	"reflect"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/aukilabs/celltree/celltree"
	"github.com/aukilabs/celltree/featureflag"
	cthttp "github.com/aukilabs/celltree/http"
	"github.com/aukilabs/celltree/mesh"
	"github.com/aukilabs/celltree/models"
	"github.com/aukilabs/celltree/smoketest"
	ctwebsocket "github.com/aukilabs/celltree/websocket"
	"github.com/aukilabs/go-tooling/pkg/cli"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/events"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/go-tooling/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/segmentio/encoding/json"
	"golang.org/x/net/websocket"
)

var (
	// The celltree version number. Set at build.
	version = "v0.1.0"

	infoGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name:        "celltree_info",
		Help:        "Cell tree server information.",
		ConstLabels: prometheus.Labels{"version": version},
	})
)

// This will effectively disable obfuscation of the config struct. Without it, the keys would get obfuscated causing the cli package to generate garbled command-line options.
// https://github.com/burrowers/garble/issues/403
var _ = reflect.TypeOf(config{})

type config struct {
	Addr               string        `cli:""        env:"CELLTREE_ADDR"                 help:"Listening address for client queries."`
	AdminAddr          string        `cli:""        env:"CELLTREE_ADMIN_ADDR"           help:"Admin listening address."`
	PublicEndpoint     string        `cli:""        env:"CELLTREE_PUBLIC_ENDPOINT"      help:"The public endpoint where this server is reachable."`
	MeshFile           string        `cli:""        env:"CELLTREE_MESH_FILE"            help:"The mesh to index (.geojson or .json)."`
	CellsPerLeaf       int           `cli:""        env:"CELLTREE_CELLS_PER_LEAF"       help:"The maximum number of cells in a tree leaf."`
	Buckets            int           `cli:""        env:"CELLTREE_BUCKETS"              help:"The number of buckets evaluated when splitting a node."`
	Workers            int           `cli:""        env:"CELLTREE_WORKERS"              help:"The number of goroutines running a batch query. 0 uses every CPU."`
	LogLevel           string        `cli:""        env:"CELLTREE_LOG_LEVEL"            help:"Log level (debug|info|warning|error)."`
	LogIndent          bool          `cli:""        env:"CELLTREE_LOG_INDENT"           help:"Indent logs."`
	ClientIdleTimeout  time.Duration `cli:",hidden" env:"CELLTREE_CLIENT_IDLE_TIMEOUT"  help:"Time until an idle WebSocket client will be disconnected"`
	LogSummaryInterval time.Duration `cli:",hidden" env:"CELLTREE_LOG_SUMMARY_INTERVAL" help:"The duration between each log summary by connection."`
	ShutdownTimeout    time.Duration `cli:",hidden" env:"CELLTREE_SHUTDOWN_TIMEOUT"     help:"The time given to running requests to complete when the server stops."`
	Events             eventsConfig  `cli:",hidden" env:"-"                             help:"Event pusher configuration."`
	FeatureFlags       []string      `cli:",hidden" env:"CELLTREE_FEATURE_FLAGS"        help:"Comma separated feature flags"`
	Version            bool          `cli:""        env:"-"                             help:"Show version."`
	Help               bool          `cli:""        env:"-"                             help:"Show help."`
}

type eventsConfig struct {
	Endpoint      string        `cli:",hidden" env:"CELLTREE_EVENTS_ENDPOINT"       help:"Endpoint to where events are pushed."`
	FlushInterval time.Duration `cli:",hidden" env:"CELLTREE_EVENTS_FLUSH_INTERVAL" help:"The duration between each event flush."`
	BatchSize     int           `cli:",hidden" env:"CELLTREE_EVENTS_BATCH_SIZE"     help:"The maximum number of events sent at once."`
	QueueSize     int           `cli:",hidden" env:"CELLTREE_EVENTS_QUEUE_SIZE"     help:"The size of the queue where events are stored."`
}

func main() {
	conf := config{
		Addr:               ":4000",
		AdminAddr:          ":18190",
		PublicEndpoint:     "http://localhost:4000",
		CellsPerLeaf:       celltree.DefaultCellsPerLeaf,
		Buckets:            celltree.DefaultBuckets,
		LogLevel:           logs.InfoLevel.String(),
		ClientIdleTimeout:  time.Minute * 5,
		LogSummaryInterval: time.Minute,
		ShutdownTimeout:    cthttp.DefaultShutdownTimeout,
		Events: eventsConfig{
			FlushInterval: events.DefaultFlushInterval,
			BatchSize:     events.DefaultBatchSize,
			QueueSize:     events.DefaultQueueSize,
		},
	}

	// set the information gauge to 1, useful for SUM query
	infoGauge.Set(1)

	ctx, cancel := cli.ContextWithSignals(context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer cancel()

	cli.Register().
		Help("Starts the cell tree query server.").
		Options(&conf)
	cli.Load()

	if conf.Version {
		fmt.Println(version)
		os.Exit(0)
	}

	if err := validateConfig(conf); err != nil {
		logs.Fatal(err)
	}

	logs.SetLevel(logs.ParseLevel(conf.LogLevel))
	logs.Encoder = json.Marshal
	if conf.LogIndent {
		logs.Encoder = func(v any) ([]byte, error) {
			return json.MarshalIndent(v, "", "  ")
		}
	}

	errors.Encoder = json.Marshal

	if conf.Events.Endpoint != "" {
		eventsPusher := events.Pusher{
			Endpoint:      conf.Events.Endpoint,
			FlushInterval: conf.Events.FlushInterval,
			BatchSize:     conf.Events.BatchSize,
			QueueSize:     conf.Events.QueueSize,
			Transport:     metrics.HTTPTransport(http.DefaultTransport),
		}
		go eventsPusher.Start()
		defer eventsPusher.Close()

		eventsLogger := events.Logger{
			Pusher:           &eventsPusher,
			SDKType:          "celltree",
			SDKVersionFamily: version,
		}
		logs.SetLogger(eventsLogger.Log)
	}

	flags := featureflag.New(conf.FeatureFlags)

	idx, err := buildIndex(conf, flags)
	if err != nil {
		logs.Fatal(err)
	}

	runner := models.QueryRunner{
		Index:    idx,
		Disabled: make(map[string]bool),
	}
	flags.IfSet(featureflag.FlagDisableFaceIntersection, func() {
		runner.Disabled[celltree.OpIntersectFaces] = true
	})

	var ready atomic.Bool
	readinessCheck := func() bool {
		return ready.Load() && ctx.Err() == nil
	}

	var service http.ServeMux
	cthttp.RegisterQueryHandlers(&service, runner)
	service.Handle("/index", cthttp.HandleWithCORS(cthttp.HandleIndex(idx)))
	service.Handle("/health", cthttp.HandleWithCORS(http.HandlerFunc(cthttp.HandleHealthCheck)))
	service.Handle("/version", cthttp.HandleWithCORS(cthttp.HandleVersion(version)))
	service.Handle("/ready", cthttp.HandleWithCORS(cthttp.HandleReadyCheck(readinessCheck)))
	service.HandleFunc("/smoke-test", smoketest.HandleSmokeTest(ctx, smoketest.Options{
		Endpoint: conf.PublicEndpoint,
		SendResult: func(ctx context.Context, res smoketest.Results) error {
			logs.WithTag("passed", res.Passed).
				WithTag("duration", res.Duration).
				WithTag("checks", res.Checks).
				Info("smoke test completed")
			return nil
		},
	}))

	var connections models.IDPool
	flags.IfNotSet(featureflag.FlagDisableWebSocket, func() {
		service.Handle("/ws", websocket.Server{
			Handler: func(conn *websocket.Conn) {
				defer conn.Close()

				var qh ctwebsocket.Handler = &ctwebsocket.QueryHandler{
					Runner:            runner,
					ClientIdleTimeout: conf.ClientIdleTimeout,
					Connections:       &connections,
				}
				h := ctwebsocket.HandlerWithLogs(qh, conf.LogSummaryInterval)
				h = ctwebsocket.HandlerWithMetrics(h, conf.PublicEndpoint)
				defer h.Close()

				ctwebsocket.Handle(ctx, conn, h)
			},
		})

		service.Handle("/ping", websocket.Server{
			Handler: func(ws *websocket.Conn) {
				defer ws.Close()
				io.Copy(ws, ws)
			},
		})
	})

	var admin http.ServeMux
	admin.Handle("/metrics", promhttp.Handler())
	admin.HandleFunc("/health", cthttp.HandleHealthCheck)
	admin.HandleFunc("/debug/pprof/", pprof.Index)
	admin.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	admin.HandleFunc("/debug/pprof/profile", pprof.Profile)
	admin.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	admin.HandleFunc("/debug/pprof/trace", pprof.Trace)
	admin.Handle("/debug/pprof/goroutine", pprof.Handler("goroutine"))
	admin.Handle("/debug/pprof/heap", pprof.Handler("heap"))
	admin.Handle("/debug/pprof/threadcreate", pprof.Handler("threadcreate"))
	admin.Handle("/debug/pprof/block", pprof.Handler("block"))
	admin.HandleFunc("/ready", cthttp.HandleReadyCheck(readinessCheck))

	logs.WithTag("version", version).
		WithTag("log_level", conf.LogLevel).
		WithTag("endpoint", conf.PublicEndpoint).
		WithTag("index_id", idx.ID).
		WithTag("feature_flags", conf.FeatureFlags).
		Info("starting celltree server")

	ready.Store(true)

	cthttp.ListenAndServe(ctx, conf.ShutdownTimeout,
		&http.Server{Addr: conf.Addr, Handler: metrics.HTTPHandler(&service,
			cthttp.MetricsPathFormatter)},
		&http.Server{Addr: conf.AdminAddr, Handler: &admin},
	)
}

func buildIndex(conf config, flags featureflag.FeatureFlag) (*celltree.Index, error) {
	m, err := mesh.Load(conf.MeshFile)
	if err != nil {
		return nil, errors.New("loading mesh failed").Wrap(err)
	}

	options := []celltree.Option{
		celltree.WithCellsPerLeaf(conf.CellsPerLeaf),
		celltree.WithBuckets(conf.Buckets),
	}
	if conf.Workers != 0 {
		options = append(options, celltree.WithWorkers(conf.Workers))
	}
	flags.IfSet(featureflag.FlagSerialQueries, func() {
		options = append(options, celltree.WithWorkers(1))
	})

	idx, err := celltree.New(m, options...)
	if err != nil {
		return nil, errors.New("building index failed").
			WithTag("mesh_file", conf.MeshFile).
			Wrap(err)
	}

	logs.WithTag("mesh_file", conf.MeshFile).
		WithTag("cells", m.CellCount()).
		WithTag("vertices", m.VertexCount()).
		WithTag("index_id", idx.ID).
		Info("index built")
	return idx, nil
}

func validateConfig(conf config) error {
	if _, err := url.ParseRequestURI(conf.PublicEndpoint); err != nil {
		return errors.New("invalid public endpoint").Wrap(err)
	}

	if len(conf.MeshFile) == 0 {
		return errors.New("have to specify a mesh file")
	}

	if conf.CellsPerLeaf < 1 {
		return errors.New("cells per leaf must be positive").
			WithTag("cells_per_leaf", conf.CellsPerLeaf)
	}

	if conf.Buckets < 2 {
		return errors.New("there must be at least 2 buckets").
			WithTag("buckets", conf.Buckets)
	}

	if conf.Workers < 0 {
		return errors.New("workers can't be negative").
			WithTag("workers", conf.Workers)
	}

	if conf.ClientIdleTimeout <= 0 {
		return errors.New("client idle timeout must be positive").
			WithTag("client_idle_timeout", conf.ClientIdleTimeout)
	}

	if conf.ShutdownTimeout <= 0 {
		return errors.New("shutdown timeout must be positive").
			WithTag("shutdown_timeout", conf.ShutdownTimeout)
	}

	if conf.LogSummaryInterval <= 0 {
		return errors.New("log summary interval must be positive").
			WithTag("log_summary_interval", conf.LogSummaryInterval)
	}

	return nil
}
