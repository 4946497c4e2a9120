// Command syncd is the mailbox aggregation daemon. It sweeps enabled
// accounts on a schedule, reacts to IMAP IDLE pushes with targeted
// syncs, and classifies newly absorbed messages through a bounded
// in-process job queue.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	gosync "sync"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/paul2999Git/mailapp-sub000/internal/classify"
	"github.com/paul2999Git/mailapp-sub000/internal/config"
	"github.com/paul2999Git/mailapp-sub000/internal/crypto"
	"github.com/paul2999Git/mailapp-sub000/internal/db"
	"github.com/paul2999Git/mailapp-sub000/internal/models"
	"github.com/paul2999Git/mailapp-sub000/internal/provider/factory"
	"github.com/paul2999Git/mailapp-sub000/internal/queue"
	"github.com/paul2999Git/mailapp-sub000/internal/sync"
	"github.com/paul2999Git/mailapp-sub000/internal/thread"
)

// stopTimeout bounds how long shutdown waits for in-flight jobs.
const stopTimeout = 30 * time.Second

func main() {
	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.NewConnection(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.CloseConnection(pool)

	encryptor, err := crypto.NewEncryptor(cfg.EncryptionKeyBase64)
	if err != nil {
		log.Fatalf("Failed to create encryptor: %v", err)
	}

	adapters := factory.New(encryptor, factory.Options{
		GoogleClientID:     cfg.GoogleClientID,
		GoogleClientSecret: cfg.GoogleClientSecret,
		AzureClientID:      cfg.AzureClientID,
		AzureClientSecret:  cfg.AzureClientSecret,
	})

	dispatcher := queue.NewDispatcher(queue.Options{
		Workers:   cfg.SyncWorkers,
		QueueSize: cfg.QueueSize,
	})

	threads := thread.NewService(pool)
	syncer := sync.NewService(pool, adapters, threads, dispatcher)
	scorer := classify.NewAnthropicScorer(cfg.AnthropicAPIKey, cfg.AnthropicModel)
	classifier := classify.NewService(pool, adapters, scorer)

	dispatcher.Handle(queue.KindSync, func(ctx context.Context, job *queue.Job) error {
		if job.AccountID == queue.AllEnabledAccounts {
			return syncer.SyncAllEnabled(ctx)
		}
		return syncer.SyncAccount(ctx, job.AccountID)
	})
	dispatcher.Handle(queue.KindClassify, func(ctx context.Context, job *queue.Job) error {
		_, err := classifier.ClassifyMessage(ctx, job.MessageID)
		return err
	})

	dispatcher.Start(ctx)

	scheduler := queue.NewScheduler(dispatcher, time.Duration(cfg.SweepEveryMinutes)*time.Minute)
	scheduler.Start()

	watchers := startIdleWatchers(ctx, pool, adapters, dispatcher)

	log.Printf("Sync daemon ready: %d workers, sweeping every %d minutes", cfg.SyncWorkers, cfg.SweepEveryMinutes)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	log.Printf("Received signal %v, shutting down...", sig)

	scheduler.Stop()
	watchers.stop()
	dispatcher.Stop(stopTimeout)
}

// mailboxWatcher is the optional push capability. Only the IMAP adapter
// implements it; the REST providers are swept on the schedule alone.
type mailboxWatcher interface {
	Watch(ctx context.Context, onUpdate func())
}

// idleWatchers supervises one IDLE loop per enabled IMAP account.
type idleWatchers struct {
	cancel context.CancelFunc
	wg     gosync.WaitGroup
}

// startIdleWatchers spins up a watcher for every enabled IMAP account
// found at startup so new mail triggers a targeted sync ahead of the
// next scheduled sweep. Accounts added later are picked up by the sweep
// until the daemon restarts.
func startIdleWatchers(ctx context.Context, pool *pgxpool.Pool, adapters *factory.Factory, enqueuer *queue.Dispatcher) *idleWatchers {
	watchCtx, cancel := context.WithCancel(ctx)
	w := &idleWatchers{cancel: cancel}

	accounts, err := db.ListEnabledAccounts(ctx, pool)
	if err != nil {
		log.Printf("Warning: failed to list accounts for IDLE watchers: %v", err)
		return w
	}

	for _, account := range accounts {
		if account.Provider != models.ProviderIMAP {
			continue
		}
		adapter, err := adapters.AdapterFor(account)
		if err != nil {
			log.Printf("Warning: no IDLE watcher for %s: %v", account.EmailAddress, err)
			continue
		}
		watcher, ok := adapter.(mailboxWatcher)
		if !ok {
			adapter.Disconnect()
			continue
		}

		accountID := account.ID
		email := account.EmailAddress
		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			defer adapter.Disconnect()
			log.Printf("IDLE watcher started for %s", email)
			watcher.Watch(watchCtx, func() {
				log.Printf("New mail reported for %s, enqueueing sync", email)
				enqueuer.EnqueueSync(accountID)
			})
		}()
	}

	return w
}

// stop cancels every watcher and waits for their connections to wind
// down.
func (w *idleWatchers) stop() {
	w.cancel()
	w.wg.Wait()
}
