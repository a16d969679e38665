// Package agent implements the form-submission worker: a headless Chrome
// session (via chromedp) that logs in to the prediction site, fills the Back
// Model and Indicators Model forms with an odds triple, and reads back the
// alert texts. Each worker owns one browser session and is used for exactly
// one attempt.
//
// Submit intentionally has no cancellation hook; the retry supervisor
// abandons a hung worker and reclaims its browser processes through the
// handle registry.
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/google/uuid"

	"github.com/supermms/betfair-tips/internal/domain"
	"github.com/supermms/betfair-tips/internal/reclaim"
)

// Config holds the site URLs, credentials, and element selectors the agent
// drives. The selectors default to the known DOM of the prediction site but
// stay configurable since the site owner can reshuffle them at any time.
type Config struct {
	LoginURL      string
	BackURL       string
	IndicatorsURL string

	Username string
	Password string

	LoginUserSelector string // CSS, login form username input
	LoginPassSelector string // CSS, login form password input
	LoginButtonXPath  string
	PostLoginTitle    string // substring expected in the page title after login

	HomeInputName string // form input name= attributes
	DrawInputName string
	AwayInputName string
	SubmitXPath   string
	AlertXPath    string

	Headless  bool
	UserAgent string
}

// Defaults returns the selector set observed on the live site.
func Defaults() Config {
	return Config{
		LoginUserSelector: "#id_login",
		LoginPassSelector: "#id_password",
		LoginButtonXPath:  `//button[@type="submit"]`,
		PostLoginTitle:    "OM Quant Betting",
		HomeInputName:     "home-odds",
		DrawInputName:     "draw-odds",
		AwayInputName:     "away-odds",
		SubmitXPath:       `//button[@class="btn btn-primary"]`,
		AlertXPath:        `//div[@class="alert alert-info col-12 col-md-6 col-lg-6"]`,
		Headless:          true,
	}
}

// Factory creates one fresh browser worker per attempt.
type Factory struct {
	cfg       Config
	registry  *reclaim.Registry
	killPause time.Duration
	logger    *slog.Logger
}

// NewFactory creates a Factory. Workers register their browser process in
// the registry so a timed-out attempt can be reclaimed host-wide.
func NewFactory(cfg Config, registry *reclaim.Registry, killPause time.Duration, logger *slog.Logger) (*Factory, error) {
	if cfg.LoginURL == "" || cfg.BackURL == "" || cfg.IndicatorsURL == "" {
		return nil, fmt.Errorf("agent: login, back, and indicators URLs are required")
	}
	if cfg.Username == "" || cfg.Password == "" {
		return nil, fmt.Errorf("agent: username and password are required")
	}
	if killPause <= 0 {
		killPause = reclaim.DefaultKillPause
	}
	return &Factory{
		cfg:       cfg,
		registry:  registry,
		killPause: killPause,
		logger:    logger.With(slog.String("component", "agent")),
	}, nil
}

// New builds a Worker with its own exec allocator and browser context. The
// browser process itself starts lazily on the first Submit, so New stays
// cheap and the attempt deadline covers the whole browser lifetime.
func (f *Factory) New() (domain.Worker, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", f.cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.WindowSize(1280, 1024),
	)
	if f.cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(f.cfg.UserAgent))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	taskCtx, taskCancel := chromedp.NewContext(allocCtx)

	return &Worker{
		id:          uuid.NewString(),
		cfg:         f.cfg,
		taskCtx:     taskCtx,
		taskCancel:  taskCancel,
		allocCancel: allocCancel,
		registry:    f.registry,
		killPause:   f.killPause,
		logger:      f.logger,
	}, nil
}

// Worker is one isolated browser session implementing domain.Worker.
type Worker struct {
	id          string
	cfg         Config
	taskCtx     context.Context
	taskCancel  context.CancelFunc
	allocCancel context.CancelFunc
	registry    *reclaim.Registry
	killPause   time.Duration
	logger      *slog.Logger
}

// Submit logs in and drives both model forms for the triple. It can hang at
// any step (the site sometimes never renders the alert) and relies on the
// supervisor's deadline for liveness.
func (w *Worker) Submit(triple domain.OddsTriple) (domain.Prediction, error) {
	if err := w.start(); err != nil {
		return domain.Prediction{}, fmt.Errorf("agent: start browser: %w", err)
	}

	if err := w.login(); err != nil {
		return domain.Prediction{}, fmt.Errorf("agent: login: %w", err)
	}

	w.logger.Info("submitting back model form", slog.String("worker_id", w.id))
	back, err := w.fillAndSubmit(w.cfg.BackURL, triple)
	if err != nil {
		return domain.Prediction{}, fmt.Errorf("agent: back model: %w", err)
	}

	w.logger.Info("submitting indicators model form", slog.String("worker_id", w.id))
	indicators, err := w.fillAndSubmit(w.cfg.IndicatorsURL, triple)
	if err != nil {
		return domain.Prediction{}, fmt.Errorf("agent: indicators model: %w", err)
	}

	return domain.Prediction{Back: back, Indicators: indicators}, nil
}

// start launches the browser and registers its process for reclamation.
func (w *Worker) start() error {
	if err := chromedp.Run(w.taskCtx); err != nil {
		return err
	}
	if w.registry != nil {
		if browser := chromedp.FromContext(w.taskCtx).Browser; browser != nil {
			if proc := browser.Process(); proc != nil {
				w.registry.Register(w.id, proc.Pid)
			}
		}
	}
	return nil
}

// login authenticates the session and verifies the post-login page title.
func (w *Worker) login() error {
	err := chromedp.Run(w.taskCtx,
		chromedp.Navigate(w.cfg.LoginURL),
		chromedp.WaitVisible(w.cfg.LoginUserSelector, chromedp.ByQuery),
		chromedp.SetValue(w.cfg.LoginUserSelector, w.cfg.Username, chromedp.ByQuery),
		chromedp.SetValue(w.cfg.LoginPassSelector, w.cfg.Password, chromedp.ByQuery),
		chromedp.Click(w.cfg.LoginButtonXPath, chromedp.BySearch),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if err != nil {
		return err
	}

	if w.cfg.PostLoginTitle == "" {
		return nil
	}
	var title string
	if err := chromedp.Run(w.taskCtx, chromedp.Title(&title)); err != nil {
		return err
	}
	if !strings.Contains(title, w.cfg.PostLoginTitle) {
		return fmt.Errorf("unexpected page title after login: %q", title)
	}
	return nil
}

// fillAndSubmit navigates to one model form, enters the three prices, clicks
// submit, and returns the alert text.
func (w *Worker) fillAndSubmit(url string, triple domain.OddsTriple) (string, error) {
	homeSel := inputSelector(w.cfg.HomeInputName)
	drawSel := inputSelector(w.cfg.DrawInputName)
	awaySel := inputSelector(w.cfg.AwayInputName)

	var alert string
	err := chromedp.Run(w.taskCtx,
		chromedp.Navigate(url),
		chromedp.WaitVisible(homeSel, chromedp.ByQuery),
		chromedp.SetValue(homeSel, formatPrice(triple.Home), chromedp.ByQuery),
		chromedp.SetValue(drawSel, formatPrice(triple.Draw), chromedp.ByQuery),
		chromedp.SetValue(awaySel, formatPrice(triple.Away), chromedp.ByQuery),
		chromedp.Click(w.cfg.SubmitXPath, chromedp.BySearch),
		chromedp.Text(w.cfg.AlertXPath, &alert, chromedp.BySearch),
	)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(alert), nil
}

// Close gracefully shuts the browser down and deregisters the worker. It can
// block when the browser is wedged; the supervisor bounds it with the grace
// window and escalates to Kill.
func (w *Worker) Close() error {
	err := chromedp.Cancel(w.taskCtx)
	w.allocCancel()
	if w.registry != nil {
		w.registry.Deregister(w.id)
	}
	return err
}

// Kill force-terminates the registered browser processes and releases the
// chromedp contexts. It never reports failure.
func (w *Worker) Kill() {
	if w.registry != nil {
		w.registry.Kill(w.id, w.killPause)
	}
	w.taskCancel()
	w.allocCancel()
}

func inputSelector(name string) string {
	return fmt.Sprintf(`input[name=%q]`, name)
}

func formatPrice(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
