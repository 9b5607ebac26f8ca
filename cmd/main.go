package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
	"golang.org/x/oauth2"

	"roombook/internal/app"
	"roombook/internal/booking"
	"roombook/internal/config"
	"roombook/internal/google"
	"roombook/internal/httpapi"
	"roombook/internal/models"
	"roombook/internal/slot"
	"roombook/internal/syncer"
)

func main() {
	// Load .env file first, but don't error if it doesn't exist.
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "roombook",
		Usage: "Book, cancel and review office meeting rooms.",
		Commands: []*cli.Command{
			roomsCommand(),
			slotsCommand(),
			bookCommand(),
			cancelCommand(),
			listCommand(),
			serveCommand(),
			syncCommand(),
			authCommand(),
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := app.RunContext(ctx, os.Args)
	stop()
	if err != nil {
		slog.Error("Application failed", "error", err)
		os.Exit(1)
	}
}

// load reads the configuration and opens the booking service.
func load(ctx context.Context) (*config.Config, *slog.Logger, *app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, err
	}
	logger := setupLogger(cfg.LogLevel)
	cfg.LogConfiguration(logger)

	a, err := app.Build(ctx, logger, cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, logger, a, nil
}

func roomsCommand() *cli.Command {
	return &cli.Command{
		Name:  "rooms",
		Usage: "List the meeting rooms.",
		Action: func(c *cli.Context) error {
			printRooms(os.Stdout, models.DefaultCatalog())
			return nil
		},
	}
}

func slotsCommand() *cli.Command {
	return &cli.Command{
		Name:  "slots",
		Usage: "Show start times for a date, end times for a start, or the rooms free for a slot.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "date", Required: true, Usage: "Booking date, YYYY-MM-DD."},
			&cli.StringFlag{Name: "start", Usage: "Start time, HH:MM."},
			&cli.StringFlag{Name: "end", Usage: "End time, HH:MM."},
		},
		Action: func(c *cli.Context) error {
			_, _, a, err := load(c.Context)
			if err != nil {
				return err
			}
			svc := a.Service

			if c.String("start") == "" {
				date, err := slot.ParseDate(c.String("date"))
				if err != nil {
					return fmt.Errorf("invalid date %q: %w", c.String("date"), err)
				}
				printTimes(os.Stdout, "Start Time", svc.StartTimes(date))
				return nil
			}

			if c.String("end") == "" {
				start, err := slot.ParseTimeOfDay(c.String("start"))
				if err != nil {
					return fmt.Errorf("invalid start time %q: %w", c.String("start"), err)
				}
				printTimes(os.Stdout, "End Time", svc.Grid().Ends(start))
				return nil
			}

			date, iv, err := booking.ParseSlot(c.String("date"), c.String("start"), c.String("end"))
			if err != nil {
				return err
			}
			if !iv.Valid() {
				return fmt.Errorf("end time must be after start time")
			}
			free := svc.AvailableRooms(date, iv)
			if len(free) == 0 {
				fmt.Println("No rooms available for the selected time slot. Please choose a different time.")
				return nil
			}
			printRooms(os.Stdout, free)
			return nil
		},
	}
}

func bookCommand() *cli.Command {
	return &cli.Command{
		Name:  "book",
		Usage: "Book a meeting room.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "date", Required: true, Usage: "Booking date, YYYY-MM-DD."},
			&cli.StringFlag{Name: "start", Required: true, Usage: "Start time, HH:MM."},
			&cli.StringFlag{Name: "end", Required: true, Usage: "End time, HH:MM."},
			&cli.StringFlag{Name: "room", Required: true, Usage: "Room name, e.g. HIMALAYA."},
			&cli.StringFlag{Name: "name", Required: true, Usage: "Your name."},
			&cli.StringFlag{Name: "email", Required: true, Usage: "Your email, needed to cancel."},
			&cli.StringFlag{Name: "description", Required: true, Usage: "Meeting description."},
			&cli.StringFlag{Name: "cc", Usage: "Comma separated addresses to copy."},
		},
		Action: func(c *cli.Context) error {
			_, _, a, err := load(c.Context)
			if err != nil {
				return err
			}

			date, iv, err := booking.ParseSlot(c.String("date"), c.String("start"), c.String("end"))
			if err != nil {
				return err
			}
			receipt, err := a.Service.Create(c.Context, booking.Request{
				Date:        date,
				Interval:    iv,
				Room:        c.String("room"),
				Name:        c.String("name"),
				Email:       c.String("email"),
				Description: c.String("description"),
				CCEmails:    booking.SplitEmails(c.String("cc")),
			})
			if err != nil {
				return describe(err)
			}

			b := receipt.Booking
			fmt.Printf("Booking confirmed! Your booking ID is %d.\n", b.ID)
			fmt.Printf("%s on %s, %s to %s.\n", b.Room, b.Date, b.Start.Short(), b.End.Short())
			printWarnings(receipt)
			return nil
		},
	}
}

func cancelCommand() *cli.Command {
	return &cli.Command{
		Name:  "cancel",
		Usage: "Cancel an upcoming booking. Without --id, lists the bookings that can be cancelled.",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "id", Usage: "Booking ID."},
			&cli.StringFlag{Name: "email", Usage: "Email used when booking."},
		},
		Action: func(c *cli.Context) error {
			_, _, a, err := load(c.Context)
			if err != nil {
				return err
			}
			svc := a.Service

			if !c.IsSet("id") {
				upcoming := svc.Upcoming(svc.Now())
				if len(upcoming) == 0 {
					fmt.Println("No upcoming bookings to cancel.")
					return nil
				}
				printBookings(os.Stdout, "Upcoming Bookings", upcoming)
				return nil
			}
			if c.String("email") == "" {
				return fmt.Errorf("--email is required to cancel a booking")
			}

			receipt, err := svc.Cancel(c.Context, c.Int("id"), c.String("email"))
			if err != nil {
				return describe(err)
			}
			fmt.Printf("Booking %d cancelled successfully.\n", receipt.Booking.ID)
			printWarnings(receipt)
			return nil
		},
	}
}

func listCommand() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "Show upcoming bookings and booking history.",
		Action: func(c *cli.Context) error {
			_, _, a, err := load(c.Context)
			if err != nil {
				return err
			}
			past, upcoming := a.Service.List(a.Service.Now())
			printBookings(os.Stdout, "Upcoming Bookings", upcoming)
			fmt.Println()
			printBookings(os.Stdout, "Booking History", past)
			return nil
		},
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the booking JSON API over HTTP.",
		Action: func(c *cli.Context) error {
			cfg, logger, a, err := load(c.Context)
			if err != nil {
				return err
			}
			handler := httpapi.NewBookingHandler(a.Service, logger).Routes()
			return app.NewServer(cfg, logger, handler).Run(c.Context)
		},
	}
}

func syncCommand() *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Publish upcoming bookings to the shared CalDAV calendar.",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "once", Usage: "Run the sync cycle once and exit."},
			&cli.BoolFlag{Name: "dry-run", Usage: "Log what would be synced without making changes."},
			&cli.IntFlag{Name: "watch", Value: 300, Usage: "Run sync every N seconds. Overrides --once."},
		},
		Action: func(c *cli.Context) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := setupLogger(cfg.LogLevel)

			if !cfg.CalDAVEnabled() {
				return fmt.Errorf("CALDAV_URL environment variable not set")
			}
			if c.Bool("dry-run") {
				logger.Info("Performing a dry run. No changes will be made.")
			}

			loc, err := cfg.Location()
			if err != nil {
				return err
			}
			st, err := app.NewStore(c.Context, logger, cfg, loc)
			if err != nil {
				return err
			}
			calendar, err := app.NewCalendar(c.Context, logger, cfg, loc)
			if err != nil {
				return err
			}

			s, err := syncer.NewSyncer(logger, st, calendar, cfg.SyncStateFile, c.Bool("dry-run"), loc)
			if err != nil {
				return fmt.Errorf("failed to create syncer: %w", err)
			}

			// --watch flag takes precedence
			if c.IsSet("watch") {
				return watch(c.Context, logger, time.Duration(c.Int("watch"))*time.Second, s.Sync)
			}
			logger.Info("Running a single sync cycle.")
			if err := s.Sync(c.Context); err != nil {
				return fmt.Errorf("single sync cycle failed: %w", err)
			}
			return nil
		},
	}
}

// watch runs sync immediately and then on every tick until ctx is cancelled.
func watch(ctx context.Context, logger *slog.Logger, interval time.Duration, sync func(context.Context) error) error {
	logger.Info("Starting watcher.", "interval", interval)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if err := sync(ctx); err != nil {
			logger.Error("Sync cycle failed", "error", err)
		}
		select {
		case <-ctx.Done():
			logger.Info("Stopping watcher.")
			return nil
		case <-ticker.C:
		}
	}
}

func authCommand() *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Authenticate with a Google account to get a Sheets API token.",
		Action: func(c *cli.Context) error {
			logger := setupLogger("info")
			logger.Info("Starting Google authentication flow.")

			config, err := google.GetOAuthConfigForAuthFlow(os.Getenv("GOOGLE_CLIENT_ID"), os.Getenv("GOOGLE_CLIENT_SECRET"))
			if err != nil {
				return fmt.Errorf("failed to get google oauth config: %w", err)
			}

			authURL := config.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
			fmt.Printf("Go to the following link in your browser then type the "+
				"authorization code: \n%v\n", authURL)

			fmt.Print("Enter Authorization Code: ")
			reader := bufio.NewReader(os.Stdin)
			authCode, _ := reader.ReadString('\n')
			authCode = strings.TrimSpace(authCode)

			token, err := google.TokenFromWeb(c.Context, config, authCode)
			if err != nil {
				return fmt.Errorf("unable to retrieve token from web: %w", err)
			}

			fmt.Print("Enter a name for this account (leave empty for 'default'): ")
			accountName, _ := reader.ReadString('\n')
			tokenFile := google.TokenFile(accountName)

			if err := google.SaveToken(tokenFile, token); err != nil {
				return fmt.Errorf("failed to save token: %w", err)
			}

			logger.Info("Successfully authenticated and saved token.", "file", tokenFile)
			return nil
		},
	}
}

// describe turns booking errors into messages for the person at the terminal.
func describe(err error) error {
	var verr *booking.ValidationError
	switch {
	case errors.As(err, &verr):
		return fmt.Errorf("invalid %s: %s", verr.Field, verr.Message)
	case errors.Is(err, booking.ErrConflict):
		return fmt.Errorf("%w. Please choose a different time or room", err)
	case errors.Is(err, booking.ErrAuthMismatch):
		return fmt.Errorf("email does not match our records for this booking")
	case errors.Is(err, booking.ErrAlreadyStarted):
		return fmt.Errorf("booking has already started and is kept in the history")
	default:
		return err
	}
}

func printWarnings(receipt *booking.Receipt) {
	for _, w := range receipt.Warnings {
		fmt.Printf("Warning: %v\n", w)
	}
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
}
