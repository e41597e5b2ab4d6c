package sale

import (
	"context"
	"strings"
	"time"

	"github.com/Cleverse/go-utilities/utils"
	"github.com/cockroachdb/errors"
	"github.com/gaze-network/batchsale/common/errs"
	"github.com/gaze-network/batchsale/core"
	"github.com/gaze-network/batchsale/core/worker"
	"github.com/gaze-network/batchsale/internal/config"
	"github.com/gaze-network/batchsale/internal/postgres"
	"github.com/gaze-network/batchsale/modules/sale/api/httphandler"
	"github.com/gaze-network/batchsale/modules/sale/archive"
	"github.com/gaze-network/batchsale/modules/sale/datagateway"
	"github.com/gaze-network/batchsale/modules/sale/internal/entity"
	"github.com/gaze-network/batchsale/modules/sale/monitor"
	"github.com/gaze-network/batchsale/modules/sale/repository/memory"
	salepostgres "github.com/gaze-network/batchsale/modules/sale/repository/postgres"
	"github.com/gaze-network/batchsale/modules/sale/stats"
	"github.com/gaze-network/batchsale/pkg/backoff"
	"github.com/gaze-network/batchsale/pkg/btcpay"
	"github.com/gaze-network/batchsale/pkg/logger"
	"github.com/gaze-network/batchsale/pkg/logger/slogx"
	"github.com/gaze-network/batchsale/pkg/rgbnode"
	"github.com/gofiber/fiber/v2"
	"github.com/samber/do/v2"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
)

func New(injector do.Injector) (core.Worker, error) {
	ctx := do.MustInvoke[context.Context](injector)
	conf := do.MustInvoke[config.Config](injector)
	saleConf := conf.Modules.Sale
	ctx = logger.WithContext(ctx, slogx.String("module", "sale"))

	var (
		store        datagateway.SaleDataGateway
		cleanupFuncs []func(context.Context) error
	)
	switch strings.ToLower(saleConf.Database) {
	case "postgresql", "postgres", "pg":
		pg, err := postgres.NewPool(ctx, saleConf.Postgres)
		if err != nil {
			if errors.Is(err, errs.InvalidArgument) {
				return nil, errors.Wrap(err, "Invalid Postgres configuration for sale")
			}
			return nil, errors.Wrap(err, "can't create Postgres connection pool")
		}
		cleanupFuncs = append(cleanupFuncs, func(ctx context.Context) error {
			pg.Close()
			return nil
		})
		store = salepostgres.NewRepository(pg)
	case "memory":
		logger.WarnContext(ctx, "Using in-memory sale store, invoices and the ledger are lost on restart")
		store = memory.NewRepository()
	default:
		return nil, errors.Wrapf(errs.Unsupported, "%q database for sale is not supported", saleConf.Database)
	}

	ledger, err := RestoreLedger(ctx, store, utils.Default(saleConf.TotalSupply, DefaultTotalSupply))
	if err != nil {
		return nil, errors.WithStack(err)
	}
	logger.InfoContext(ctx, "Restored distribution ledger",
		slogx.Uint64("total_supply", ledger.Stats().TotalSupply),
		slogx.Uint64("total_distributed", ledger.Stats().TotalDistributed),
	)

	btcpayClient, err := btcpay.New(saleConf.BTCPay)
	if err != nil {
		return nil, errors.Wrap(err, "invalid BTCPay configuration")
	}
	rgbClient, err := rgbnode.New(saleConf.RGBNode)
	if err != nil {
		return nil, errors.Wrap(err, "invalid RGB node configuration")
	}

	if _, err := CheckAssetBalance(ctx, rgbClient, ledger.Stats().Remaining); err != nil {
		logger.WarnContext(ctx, "Can't check RGB node asset balance, continuing", slogx.Error(err))
	}

	ttl := utils.Default(saleConf.InvoiceTTL, InvoiceTTL)
	processor := NewBTCPayProcessor(btcpayClient, ttl)
	paymentMonitor := monitor.New(store, processor, ledger, NewRGBConsigner(rgbClient), monitor.Config{
		Policy:        saleConf.Monitor,
		ConsignPolicy: saleConf.Consign,
	})
	if saleConf.BTCPay.Websocket {
		paymentMonitor.WithStreamer(btcpayClient)
	}
	if err := paymentMonitor.Start(ctx); err != nil {
		return nil, errors.Wrap(err, "can't start payment monitor")
	}
	cleanupFuncs = append([]func(context.Context) error{paymentMonitor.Shutdown}, cleanupFuncs...)

	resumed, err := ResumeInvoices(ctx, store, paymentMonitor)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	logger.InfoContext(ctx, "Resumed unfinished invoices", slogx.Int("count", resumed))

	issuer := NewIssuer(store, processor, paymentMonitor, conf.Network.ChainParams()).WithTTL(ttl)

	statsPolicy := saleConf.Monitor
	if saleConf.Stats.Interval > 0 {
		statsPolicy = backoffPolicy(saleConf.Stats.Interval, saleConf.Stats.MaxBackoff)
	}
	statsPoller := stats.New(func(ctx context.Context) (entity.LedgerStats, error) {
		s, err := store.GetLedgerStats(ctx)
		if err != nil {
			return entity.LedgerStats{}, errors.WithStack(err)
		}
		return *s, nil
	}, stats.Config{
		Policy:      statsPolicy,
		MaxStale:    saleConf.Stats.MaxStale,
		IdleTimeout: utils.Default(saleConf.Stats.IdleTimeout, stats.DefaultIdleTimeout),
	})
	statsPoller.Poll(ctx)

	var archiver *worker.Worker
	if saleConf.Archive.Enabled {
		uploader, err := archive.NewS3Uploader(ctx, saleConf.Archive)
		if err != nil {
			return nil, errors.Wrap(err, "can't create archive uploader")
		}
		archiver = worker.New(archive.New(store, uploader, saleConf.Archive), saleConf.Archive.Interval)
	}

	// Mount API
	apiHandlers := lo.Uniq(saleConf.APIHandlers)
	for _, handler := range apiHandlers {
		switch handler {
		case "http":
			httpServer := do.MustInvoke[*fiber.App](injector)
			saleHTTPHandler := httphandler.New(issuer, store, paymentMonitor, statsPoller, saleConf.BTCPay.WebhookSecret)
			if err := saleHTTPHandler.Mount(httpServer); err != nil {
				return nil, errors.Wrap(err, "can't mount sale API")
			}
			logger.InfoContext(ctx, "Mounted HTTP handler")
		default:
			return nil, errors.Wrapf(errs.Unsupported, "%q API handler is not supported", handler)
		}
	}

	return &Service{
		statsPoller:  statsPoller,
		archiver:     archiver,
		cleanupFuncs: cleanupFuncs,
	}, nil
}

// Service runs the background work of the sale: ledger stats polling and the
// invoice archiver. Payment monitoring starts with the module.
type Service struct {
	statsPoller  *stats.Poller
	archiver     *worker.Worker
	cleanupFuncs []func(context.Context) error
}

func (s *Service) Run(ctx context.Context) error {
	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		s.statsPoller.Run(gctx)
		return nil
	})
	if s.archiver != nil {
		group.Go(func() error {
			return errors.WithStack(s.archiver.Run(gctx))
		})
	}
	return errors.WithStack(group.Wait())
}

// Shutdown stops the archiver, the payment monitor and closes the store.
func (s *Service) Shutdown(ctx context.Context) error {
	var errList []error
	if s.archiver != nil {
		if err := s.archiver.ShutdownWithContext(ctx); err != nil {
			errList = append(errList, errors.WithStack(err))
		}
	}
	for _, cleanup := range s.cleanupFuncs {
		if err := cleanup(ctx); err != nil {
			errList = append(errList, errors.WithStack(err))
		}
	}
	return errors.WithStack(errors.Join(errList...))
}

func backoffPolicy(interval, maxBackoff time.Duration) backoff.Policy {
	policy := backoff.DefaultPolicy()
	policy.Base = interval
	policy.Max = utils.Default(maxBackoff, max(interval, policy.Max))
	return policy
}
