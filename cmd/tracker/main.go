package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/pontaj-digital/pontaj-backend-go/internal/domain/shift"
	appHTTP "github.com/pontaj-digital/pontaj-backend-go/internal/handler/http"
	"github.com/pontaj-digital/pontaj-backend-go/internal/pkg/accounting"
	"github.com/pontaj-digital/pontaj-backend-go/internal/pkg/tracker"
)

// Follows the caller's live shift from a terminal, printing the live
// accounting every tick and pinging a fixed position.
func main() {
	_ = godotenv.Load()

	baseURL := flag.String("url", envOr("TRACKER_BASE_URL", "http://localhost:8080"), "shift service base URL")
	token := flag.String("token", os.Getenv("TRACKER_TOKEN"), "access token")
	lat := flag.Float64("lat", 0, "latitude reported on each ping")
	lon := flag.Float64("lon", 0, "longitude reported on each ping")
	noGPS := flag.Bool("no-gps", false, "never ping, as a device without a fix")
	flag.Parse()

	slog.SetDefault(appHTTP.NewLogger(os.Stderr, "development", envOr("LOG_LEVEL", "info")))

	if *token == "" {
		fmt.Fprintln(os.Stderr, "missing access token (-token or TRACKER_TOKEN)")
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	position := tracker.PositionFunc(func(ctx context.Context) (tracker.Position, bool) {
		return tracker.Position{Latitude: *lat, Longitude: *lon}, !*noGPS
	})

	t := tracker.New(tracker.Config{
		BaseURL:    *baseURL,
		Token:      *token,
		RetryCount: 2,
	}, accounting.NewEngine(accounting.Options{}), accounting.SystemClock{}, position, printUpdate)

	err := t.Run(ctx)
	switch {
	case err == nil:
		fmt.Println("shift closed")
	case errors.Is(err, shift.ErrNoActiveShift):
		fmt.Println("no active shift")
	case errors.Is(err, context.Canceled):
	default:
		slog.Error("Tracker stopped", "error", err)
		os.Exit(1)
	}
}

func printUpdate(u tracker.Update) {
	stale := ""
	if u.Stale {
		stale = " (offline)"
	}
	fmt.Printf("\r%s  %-16s worked %s  break %s  pause %s%s",
		u.At.Local().Format("15:04:05"),
		u.Segment.Status,
		clock(u.Accounting.WorkedHours),
		clock(u.Accounting.BreakHours),
		clock(u.Accounting.GeofencePauseHours),
		stale,
	)
}

func clock(hours float64) string {
	d := time.Duration(hours * float64(time.Hour)).Round(time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", int(d.Hours()), int(d.Minutes())%60, int(d.Seconds())%60)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
