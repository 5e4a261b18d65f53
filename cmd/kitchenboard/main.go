// Command kitchenboard prints the canteen queue (incoming and in-progress orders) and
// refreshes it on a timer. It reads either through the gRPC service or straight from the
// database.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"karavanCanteen/internal/config"
	"karavanCanteen/internal/dashboard"
	"karavanCanteen/internal/db"
	grpcserver "karavanCanteen/internal/grpc"
	"karavanCanteen/internal/telemetry"
	"karavanCanteen/internal/visibility"
	"karavanCanteen/models"
	"karavanCanteen/repository"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

func main() {
	addr := flag.String("grpc", "", "CanteenService address; empty reads the database directly")
	token := flag.String("token", os.Getenv("CANTEEN_TOKEN"), "bearer token for -grpc")
	user := flag.String("user", "kitchen", "staff username for direct database mode")
	once := flag.Bool("once", false, "print one snapshot and exit")
	flag.Parse()

	cfg, err := config.LoadWithDefaults()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger := telemetry.InitLogger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var src dashboard.Loader
	var actor models.Actor
	if *addr != "" {
		if *token == "" {
			log.Fatal("-token (or CANTEEN_TOKEN) is required with -grpc")
		}
		conn, err := grpc.NewClient(*addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
		if err != nil {
			log.Fatalf("dial %s: %v", *addr, err)
		}
		defer conn.Close()
		src = grpcserver.NewClient(conn, *token)
	} else {
		dialect := db.Dialect(cfg.Database.Driver)
		d, err := db.OpenDialect(dialect, cfg.Database.DSN())
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		defer d.Close()
		u, err := repository.NewUserRepository(d, dialect).GetByUsername(ctx, *user)
		if err != nil {
			log.Fatalf("get user: %v", err)
		}
		if u == nil || !u.Role.IsStaff() {
			log.Fatalf("%q is not a canteen staff account", *user)
		}
		actor = models.ActorOf(u)
		src = dashboard.NewService(repository.NewOrderRepository(d, dialect), logger)
	}

	b := newBoard(os.Stdout)
	feeds := []*dashboard.Feed{
		dashboard.NewFeed(src, visibility.CanteenIncoming, actor, cfg.Orders.PollInterval),
		dashboard.NewFeed(src, visibility.CanteenOngoing, actor, cfg.Orders.PollInterval),
	}

	if *once {
		for _, f := range feeds {
			snap, _, err := f.Refresh(ctx)
			if err != nil {
				log.Fatalf("load %s: %v", snap.View, err)
			}
			b.update(snap)
		}
		return
	}

	var wg sync.WaitGroup
	for _, f := range feeds {
		f.OnUpdate = b.update
		f.OnError = func(err error) { fmt.Fprintf(os.Stderr, "refresh failed: %v\n", err) }
		wg.Add(1)
		go func(f *dashboard.Feed) {
			defer wg.Done()
			_ = f.Run(ctx)
		}(f)
	}
	wg.Wait()
}

// board renders the latest snapshot of each view.
type board struct {
	mu    sync.Mutex
	out   io.Writer
	views map[visibility.View]dashboard.Snapshot
}

func newBoard(out io.Writer) *board {
	return &board{out: out, views: map[visibility.View]dashboard.Snapshot{}}
}

func (b *board) update(s dashboard.Snapshot) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.views[s.View] = s
	fmt.Fprint(b.out, render(b.views))
}

var titles = map[visibility.View]string{
	visibility.CanteenIncoming: "INCOMING",
	visibility.CanteenOngoing:  "IN THE KITCHEN",
}

func render(views map[visibility.View]dashboard.Snapshot) string {
	var sb strings.Builder
	for _, v := range []visibility.View{visibility.CanteenIncoming, visibility.CanteenOngoing} {
		s, ok := views[v]
		if !ok {
			continue
		}
		fmt.Fprintf(&sb, "== %s (%d) ==\n", titles[v], len(s.Orders))
		for _, o := range s.Orders {
			fmt.Fprintf(&sb, "%-22s %-10s %-20s %s\n", o.OrderNumber, o.Status, o.DeliveryLocation, o.CreatedAt.Local().Format("15:04"))
			for _, it := range o.Items {
				fmt.Fprintf(&sb, "    %dx %s\n", it.Quantity, it.ItemName)
			}
		}
	}
	return sb.String()
}
