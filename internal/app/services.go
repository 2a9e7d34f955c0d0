package app

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/stripd/internal/api"
	"github.com/dokzlo13/stripd/internal/color"
	"github.com/dokzlo13/stripd/internal/config"
	"github.com/dokzlo13/stripd/internal/controller"
	"github.com/dokzlo13/stripd/internal/db"
	"github.com/dokzlo13/stripd/internal/device"
	"github.com/dokzlo13/stripd/internal/discovery"
	"github.com/dokzlo13/stripd/internal/eventbus"
	"github.com/dokzlo13/stripd/internal/ledger"
	"github.com/dokzlo13/stripd/internal/mqtt"
	"github.com/dokzlo13/stripd/internal/script"
	"github.com/dokzlo13/stripd/internal/strip"
)

// Version is reported over mDNS. Set at build time with -ldflags.
var Version = "dev"

// Services is a container for all application services.
// It manages service initialization order and dependencies.
type Services struct {
	cfg *config.Config

	// Core
	Sink       strip.Sink
	sinkCloser io.Closer
	Bus        *eventbus.Bus
	Device     *device.Device
	Controller *controller.Controller

	// Optional, nil when disabled
	DB         *db.DB
	Ledger     *ledger.Ledger
	API        *api.Server
	MQTT       *mqtt.Client
	Advertiser *discovery.Advertiser
}

// NewServices creates all services with proper dependency injection.
func NewServices(cfg *config.Config) (*Services, error) {
	s := &Services{cfg: cfg}

	order, err := color.ParseOrder(cfg.Strip.ColorOrder)
	if err != nil {
		return nil, err
	}

	s.Sink, s.sinkCloser, err = strip.Open(cfg.Strip.Sink, cfg.Strip.Path, cfg.Strip.Pixels, order)
	if err != nil {
		return nil, err
	}

	var aliases script.Aliases
	if cfg.Script != "" {
		aliases, err = script.LoadFile(cfg.Script, cfg.Strip.Pixels)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("failed to load script %s: %w", cfg.Script, err)
		}
	}

	s.Bus = eventbus.NewWithConfig(cfg.EventBus.Workers, cfg.EventBus.QueueSize)
	s.Device = device.New(cfg.Device.ID, cfg.Device.Name, cfg.Device.QueueSize)
	s.Controller = controller.New(cfg.Strip.Pixels, s.Sink, s.Bus, controller.Options{
		ColorPowersOn: cfg.Light.ColorPowersOn,
		Aliases:       aliases,
	})
	s.Controller.Register(s.Device)

	if cfg.Ledger.Enabled {
		s.DB, err = db.Open(cfg.Ledger.Path)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.Ledger = ledger.New(s.DB.DB)
	}

	if cfg.API.Enabled {
		opts := api.Options{
			Token:     cfg.API.Token,
			RateLimit: cfg.API.RateLimitRPS,
		}
		if s.Ledger != nil {
			opts.History = s.Ledger
		}
		s.API = api.NewServer(cfg.API.Host, cfg.API.Port, s.Device, opts)
	}

	if cfg.MQTT.Enabled {
		s.MQTT = mqtt.New(cfg.MQTT, s.Device)
		s.Controller.Observe(s.MQTT.Notify)
	}

	return s, nil
}

// StartCore starts the device worker and everything that reacts to applied
// commands. No transport is accepting commands yet.
func (s *Services) StartCore(ctx context.Context) {
	s.Device.Start(ctx)

	if s.Ledger != nil {
		s.Bus.Subscribe(eventbus.EventStateChanged, s.recordCommand)
		go s.Ledger.RunCleanup(ctx, s.cfg.Ledger.CleanupInterval.Duration(), s.cfg.Ledger.Retention())
	}
}

// StartTransports opens the command surfaces.
// The onFatalError callback is called when a transport cannot keep running.
func (s *Services) StartTransports(ctx context.Context, onFatalError func(error)) error {
	if s.MQTT != nil {
		if err := s.MQTT.Connect(); err != nil {
			if !errors.Is(err, mqtt.ErrConnectPending) {
				return err
			}
			log.Warn().Err(err).Msg("MQTT broker not reachable yet, retrying in background")
		}
		// States applied during boot are held by Notify until now.
		go s.MQTT.Run(ctx)
	}

	if s.API != nil {
		go func() {
			if err := s.API.Run(ctx, s.cfg.ShutdownTimeout.Duration()); err != nil {
				onFatalError(fmt.Errorf("api server: %w", err))
			}
		}()

		if s.cfg.Discovery.Enabled {
			adv, err := discovery.Advertise(discovery.Info{
				ID:      s.cfg.Device.ID,
				Name:    s.cfg.Device.Name,
				Version: Version,
				Port:    s.cfg.API.Port,
			})
			if err != nil {
				log.Warn().Err(err).Msg("mDNS advertisement failed")
			} else {
				s.Advertiser = adv
			}
		}
	} else {
		log.Debug().Msg("API server disabled")
	}

	return nil
}

// Apply runs one command through the device as if it came from source.
func (s *Services) Apply(ctx context.Context, source, raw string) (int, error) {
	return s.Device.Call(controller.WithSource(ctx, source), controller.FunctionSetLight, raw)
}

func (s *Services) recordCommand(e eventbus.Event) {
	_, err := s.Ledger.Append(ledger.Entry{
		ID:        e.ID,
		Timestamp: e.At,
		Source:    e.Source,
		Command:   e.Command,
		Kind:      e.Kind,
		State:     e.State,
		Color:     e.Color,
	})
	if err != nil {
		log.Error().Err(err).Str("command", e.Command).Msg("Failed to record command")
	}
}

// Stop gracefully stops all services.
func (s *Services) Stop() error {
	s.Close()
	return nil
}

// Close releases all resources. Transports go first so no command arrives
// after the device worker has drained.
func (s *Services) Close() {
	if s.Advertiser != nil {
		if err := s.Advertiser.Shutdown(); err != nil {
			log.Warn().Err(err).Msg("mDNS shutdown error")
		}
	}
	if s.MQTT != nil {
		s.MQTT.Close()
	}
	if s.Device != nil {
		s.Device.Close()
	}
	if s.Bus != nil {
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout.Duration())
		s.Bus.Close(ctx)
		cancel()
	}
	if s.sinkCloser != nil {
		if err := s.sinkCloser.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close strip sink")
		}
	}
	if s.DB != nil {
		s.DB.Close()
	}
}
