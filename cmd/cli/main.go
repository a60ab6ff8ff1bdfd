// Command rewearctl is the operator tool for a ReWear deployment.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/and161185/rewear/internal/logging"
	"github.com/and161185/rewear/internal/migrate"
)

func usage() {
	fmt.Fprintf(os.Stderr, `rewearctl
Usage:
  rewearctl [-dsn postgres://...] <cmd> [args]

Commands:
  version
  migrate                                         (apply pending migrations)
  bootstrap-admin -u <username> -e <email> -p <password>
                                                  (create an approved admin)
  purge-limiter   -older <duration>               (drop idle login-limiter rows)
  health          -addr <host:port> [-service name]
`)
	os.Exit(2)
}

var (
	version   = "dev"
	buildDate = "unknown"
)

func main() {
	_ = godotenv.Load()
	dsn := flag.String("dsn", os.Getenv("REWEAR_DATABASE_DSN"), "PostgreSQL DSN")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
	}
	cmd, args := flag.Arg(0), flag.Args()[1:]

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	log, err := logging.New("info", "console")
	if err != nil {
		fail(err)
	}
	defer func() { _ = log.Sync() }()

	switch cmd {
	case "version":
		fmt.Printf("rewearctl %s (%s)\n", version, buildDate)

	case "migrate":
		requireDSN(*dsn)
		if err := migrate.Up(ctx, *dsn, log); err != nil {
			fail(err)
		}

	case "bootstrap-admin":
		fs := flag.NewFlagSet("bootstrap-admin", flag.ExitOnError)
		u := fs.String("u", "", "username")
		e := fs.String("e", "", "email")
		p := fs.String("p", "", "password")
		_ = fs.Parse(args)
		if *u == "" || *e == "" || *p == "" {
			fmt.Fprintln(os.Stderr, "need -u, -e and -p")
			os.Exit(1)
		}
		requireDSN(*dsn)
		db, store, err := openStore(ctx, *dsn)
		if err != nil {
			fail(err)
		}
		defer db.Close()
		a, err := bootstrapAdmin(ctx, store, *u, *e, *p, log)
		if err != nil {
			fail(err)
		}
		fmt.Println(a.ID)

	case "purge-limiter":
		fs := flag.NewFlagSet("purge-limiter", flag.ExitOnError)
		older := fs.Duration("older", 24*time.Hour, "idle time after which rows are dropped")
		_ = fs.Parse(args)
		requireDSN(*dsn)
		db, _, err := openStore(ctx, *dsn)
		if err != nil {
			fail(err)
		}
		defer db.Close()
		n, err := purgeLimiter(ctx, db.Pool, *older)
		if err != nil {
			fail(err)
		}
		fmt.Printf("purged %d rows\n", n)

	case "health":
		fs := flag.NewFlagSet("health", flag.ExitOnError)
		addr := fs.String("addr", "localhost:8081", "health server addr")
		svc := fs.String("service", "", "service name; empty checks the server as a whole")
		_ = fs.Parse(args)
		st, err := checkHealth(ctx, *addr, *svc)
		if err != nil {
			fail(err)
		}
		fmt.Println(st)
		if st != "SERVING" {
			os.Exit(1)
		}

	default:
		usage()
	}
}

func requireDSN(dsn string) {
	if dsn == "" {
		fmt.Fprintln(os.Stderr, "need -dsn or REWEAR_DATABASE_DSN")
		os.Exit(1)
	}
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
