package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"dune-health/internal/auth"
	"dune-health/internal/cache"
	"dune-health/internal/config"
	"dune-health/internal/health"
	"dune-health/internal/logging"
	"dune-health/internal/provider"
	"dune-health/internal/refresh"
	"dune-health/internal/service"
	"dune-health/internal/store"
	"dune-health/internal/weather"
)

const usage = `usage: dune [command]

commands:
  (none)        sync and print today's report
  auth          connect to the health data provider
  sync          pull provider data into the local database
  watch         refresh on a schedule and print a report each time
  score <id>    score a stored workout
  serve         run the HTTP API`

func main() {
	if err := run(os.Args[1:]); err != nil {
		log.Fatal(err)
	}
}

func run(args []string) error {
	// Secrets may come from a .env file; it is optional
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := ""
	if len(args) > 0 {
		cmd = args[0]
	}
	switch cmd {
	case "", "auth", "sync", "watch", "score", "serve":
	default:
		fmt.Println(usage)
		return fmt.Errorf("unknown command %q", cmd)
	}

	// Load configuration
	cfg, err := config.Load()
	if errors.Is(err, config.ErrNoConfig) {
		fmt.Println("No config file found. Creating example config...")
		if err := config.CreateExample(); err != nil {
			return fmt.Errorf("creating example config: %w", err)
		}
		path, _ := config.GetConfigPath()
		fmt.Printf("\nPlease edit the config file at:\n  %s\n\n", path)
		fmt.Println("You need to add your health provider API credentials.")
		return nil
	}
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		path, _ := config.GetConfigPath()
		fmt.Printf("Config validation failed: %v\n\n", err)
		fmt.Printf("Please edit the config file at:\n  %s\n", path)
		return nil
	}

	logger, err := logging.NewLogger(cfg.Log.Level, cfg.Log.Format, "dune")
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer logger.Sync()

	db, err := store.Open(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	if cmd == "auth" {
		if err := db.ClearAuth(ctx); err != nil {
			return fmt.Errorf("clearing stored auth: %w", err)
		}
		return authenticate(ctx, db, cfg)
	}

	ts, err := tokenSource(ctx, db, cfg)
	if err != nil {
		return err
	}

	client := provider.NewClient(cfg.Provider.BaseURL, ts)
	syncSvc := service.NewSyncService(client, db, logger.Named("sync"))
	workoutSvc := service.NewWorkoutService(db, logger.Named("workouts"))

	switch cmd {
	case "sync":
		return runSync(ctx, syncSvc)
	case "score":
		if len(args) < 2 {
			return errors.New("usage: dune score <workout-id>")
		}
		return runScore(ctx, workoutSvc, args[1])
	}

	snapshots, kv := newCache(ctx, db, cfg, logger)
	if kv != nil {
		defer kv.Close()
	}
	coord := refresh.NewCoordinator(snapshots, cfg.Refresh.Throttle.Std(), refresh.WithLogger(logger.Named("refresh")))

	dashCfg := service.DashboardConfig{
		Condition:   cfg.Scoring.Params(),
		Fatigue:     cfg.Fatigue.Params(),
		Zones:       cfg.Athlete.Zones(),
		WeeklyGoal:  cfg.Goals.WeeklyActiveDays,
		MonthlyGoal: cfg.Goals.MonthlyWorkouts,
	}
	dashboards := service.NewDashboardService(snapshots, db, newWeather(cfg, client, logger), db, dashCfg, logger.Named("dashboard"))

	switch cmd {
	case "watch":
		return runWatch(ctx, cfg, coord, syncSvc, dashboards, logger)
	case "serve":
		return runServe(ctx, cfg, db, coord, syncSvc, dashboards, workoutSvc, logger)
	}

	// Default: one report
	if _, err := syncSvc.SyncAll(ctx, nil); err != nil {
		logger.Warn("sync failed, reporting from local data", zap.Error(err))
	}
	coord.RequestRefresh(refresh.SourceAppLaunch)
	service.WriteReport(os.Stdout, dashboards.Build(ctx))
	return nil
}

// newCache builds the snapshot cache over the local store, persisting to the
// snapshot history and, when configured, to redis. The returned client is nil
// without redis.
func newCache(ctx context.Context, db *store.DB, cfg *config.Config, logger *zap.Logger) (*cache.Cache, *redis.Client) {
	persisters := []cache.Persister{store.SnapshotRecorder{DB: db, Keep: cfg.Database.KeepSnapshots}}

	var rc *redis.Client
	var kv *cache.KVPersister
	if cfg.Redis.Addr != "" {
		rc = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		kv = cache.NewKVPersister(cache.NewRedisKVStore(rc), cfg.Redis.Key, cfg.Redis.TTL.Std())
		persisters = append(persisters, kv)
	}

	c := cache.New(db, db, cache.Options{
		TTL:              cfg.Cache.TTL.Std(),
		UpstreamTimeout:  cfg.Cache.UpstreamTimeout.Std(),
		HRVDays:          cfg.Cache.HRVDays,
		SleepDays:        cfg.Cache.SleepDays,
		LatestWithinDays: cfg.Cache.LatestWithinDays,
		Params:           cfg.Scoring.Params(),
		Logger:           logger.Named("cache"),
		Persisters:       persisters,
	})

	// Seed the fallback shown when a fetch is cancelled
	last, err := db.LatestSnapshot(ctx)
	if errors.Is(err, store.ErrSnapshotNotFound) && kv != nil {
		last, err = kv.Load(ctx)
	}
	switch {
	case err == nil:
		c.SeedLastKnown(last)
	case errors.Is(err, store.ErrSnapshotNotFound), errors.Is(err, cache.ErrCacheMiss):
	default:
		logger.Warn("loading last snapshot failed", zap.Error(err))
	}
	return c, rc
}

func newWeather(cfg *config.Config, client *provider.Client, logger *zap.Logger) health.WeatherProvider {
	switch cfg.Weather.Source {
	case config.WeatherProvider:
		return client
	case config.WeatherOpenMeteo:
		return weather.NewOpenMeteo(cfg.Weather.BaseURL, cfg.Weather.Latitude, cfg.Weather.Longitude, logger.Named("weather"))
	default:
		return nil
	}
}

func runSync(ctx context.Context, syncSvc *service.SyncService) error {
	progress := make(chan service.SyncProgress)
	done := make(chan struct{})
	go func() {
		defer close(done)
		phase := ""
		for p := range progress {
			if p.Phase != phase {
				phase = p.Phase
				fmt.Printf("Syncing %s...\n", phase)
			}
		}
	}()

	result, err := syncSvc.SyncAll(ctx, progress)
	<-done
	if err != nil {
		return fmt.Errorf("sync: %w", err)
	}

	fmt.Printf("\nSynced %d days: %d HRV samples, %d RHR days, %d sleep stages, %d workouts\n",
		result.Days, result.HRVSamples, result.RHRDays, result.SleepStages, result.WorkoutsSaved)
	for _, e := range result.Errors {
		fmt.Printf("  warning: %v\n", e)
	}
	return nil
}

func runScore(ctx context.Context, workoutSvc *service.WorkoutService, id string) error {
	score, err := workoutSvc.Score(ctx, id)
	if err != nil {
		return err
	}

	fmt.Printf("Workout %s (%s, %s)\n", score.Workout.ID, score.Workout.ActivityType, score.Workout.Date.Format("Jan 2 15:04"))
	if score.Intensity != nil {
		fmt.Printf("  Intensity  %.2f (%s, %s)\n", score.Intensity.RawScore, score.Intensity.Level, score.Intensity.Detail.Method)
	} else {
		fmt.Println("  Intensity  not enough data")
	}
	if score.SuggestedEffort != nil {
		fmt.Printf("  Effort     %d/10\n", *score.SuggestedEffort)
	}
	fmt.Printf("  Compared against %d earlier sessions\n", score.HistorySize)
	return nil
}

func runWatch(ctx context.Context, cfg *config.Config, coord *refresh.Coordinator, syncSvc *service.SyncService, dashboards *service.DashboardService, logger *zap.Logger) error {
	sched, err := refresh.NewScheduler(coord, cfg.Refresh.Schedule, logger.Named("scheduler"))
	if err != nil {
		return err
	}

	events, cancel := coord.Subscribe()
	defer cancel()

	sched.Start()
	defer sched.Stop()

	coord.RequestRefresh(refresh.SourceAppLaunch)

	err = dashboards.Watch(ctx, syncOnRefresh(ctx, events, coord, syncSvc, logger), func(source refresh.Source, d *service.Dashboard) {
		fmt.Printf("\n--- %s ---\n", source)
		service.WriteReport(os.Stdout, d)
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func runServe(ctx context.Context, cfg *config.Config, db *store.DB, coord *refresh.Coordinator, syncSvc *service.SyncService, dashboards *service.DashboardService, workoutSvc *service.WorkoutService, logger *zap.Logger) error {
	sched, err := refresh.NewScheduler(coord, cfg.Refresh.Schedule, logger.Named("scheduler"))
	if err != nil {
		return err
	}

	events, cancel := coord.Subscribe()
	defer cancel()

	// Sync in the background on every refresh; the API serves from the store
	go func() {
		for range syncOnRefresh(ctx, events, coord, syncSvc, logger) {
		}
	}()

	sched.Start()
	defer sched.Stop()
	coord.RequestRefresh(refresh.SourceAppLaunch)

	srv := service.NewServer(dashboards, workoutSvc, coord, db, cfg.Server.AllowedOrigins, logger.Named("http"))
	return srv.ListenAndServe(ctx, cfg.Server.Addr)
}

// syncOnRefresh pulls provider data for each refresh event before passing it
// on, then drops anything cached while the sync ran
func syncOnRefresh(ctx context.Context, events <-chan refresh.Source, coord *refresh.Coordinator, syncSvc *service.SyncService, logger *zap.Logger) <-chan refresh.Source {
	out := make(chan refresh.Source)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case source, ok := <-events:
				if !ok {
					return
				}
				if _, err := syncSvc.SyncAll(ctx, nil); err != nil {
					logger.Warn("sync failed", zap.Stringer("source", source), zap.Error(err))
				}
				coord.InvalidateCacheOnly()
				select {
				case out <- source:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

// tokenSource returns an auto-refreshing token source, running the OAuth flow
// when nothing usable is stored
func tokenSource(ctx context.Context, db *store.DB, cfg *config.Config) (oauth2.TokenSource, error) {
	storedAuth, err := db.GetAuth(ctx)
	if errors.Is(err, store.ErrNoAuth) {
		fmt.Println("No authentication found. Starting OAuth flow...")
		if err := authenticate(ctx, db, cfg); err != nil {
			return nil, fmt.Errorf("authentication: %w", err)
		}
		storedAuth, err = db.GetAuth(ctx)
		if err != nil {
			return nil, fmt.Errorf("fetching auth after login: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("checking auth: %w", err)
	}

	token := &oauth2.Token{
		AccessToken:  storedAuth.AccessToken,
		RefreshToken: storedAuth.RefreshToken,
		Expiry:       storedAuth.ExpiresAt,
	}
	ts := auth.NewTokenSource(oauthConfig(cfg), token, func(ctx context.Context, t *oauth2.Token) error {
		return db.UpdateTokens(ctx, t.AccessToken, t.RefreshToken, t.Expiry)
	})

	// Test token is valid by getting a fresh one
	if _, err := ts.Token(); err != nil {
		fmt.Println("Stored token is invalid or expired. Re-authenticating...")
		if err := authenticate(ctx, db, cfg); err != nil {
			return nil, fmt.Errorf("re-authentication: %w", err)
		}
		return tokenSource(ctx, db, cfg)
	}
	return ts, nil
}

func oauthConfig(cfg *config.Config) *oauth2.Config {
	return auth.NewOAuthConfig(auth.Config{
		ClientID:     cfg.Provider.ClientID,
		ClientSecret: cfg.Provider.ClientSecret,
		AuthURL:      cfg.Provider.AuthURL,
		TokenURL:     cfg.Provider.TokenURL,
		RedirectURL:  auth.RedirectURL(cfg.Provider.CallbackPort),
	})
}

func authenticate(ctx context.Context, db *store.DB, cfg *config.Config) error {
	result, err := auth.Authenticate(ctx, oauthConfig(cfg), cfg.Provider.CallbackPort, os.Stdout)
	if err != nil {
		return err
	}

	storedAuth := &store.Auth{
		UserID:       result.UserID,
		AccessToken:  result.Token.AccessToken,
		RefreshToken: result.Token.RefreshToken,
		ExpiresAt:    result.Token.Expiry,
	}
	if err := db.SaveAuth(ctx, storedAuth); err != nil {
		return fmt.Errorf("saving auth: %w", err)
	}

	fmt.Println()
	if result.UserID != "" {
		fmt.Printf("Successfully authenticated as %s!\n", result.UserID)
	} else {
		fmt.Println("Successfully authenticated!")
	}
	return nil
}
