package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/gamercodedev-jpg/smartpos-inventory/config"
	"github.com/gamercodedev-jpg/smartpos-inventory/ledger"
	"github.com/gamercodedev-jpg/smartpos-inventory/reports"
	"github.com/gamercodedev-jpg/smartpos-inventory/store"
)

// Writes the valuation or stock-take variance workbook straight from the
// live store, without going through the API.
func main() {
	report := flag.String("report", "valuation", "Report to export: valuation | stock-take-variance")
	out := flag.String("out", "", "Required: output .xlsx path")
	driver := flag.String("store", "", "Store driver: redis (default) | mongo")
	flag.Parse()

	if strings.TrimSpace(*out) == "" {
		fmt.Fprintln(os.Stderr, "--out is required")
		os.Exit(1)
	}

	logger := logrus.New()
	kv, closeStore, err := openStore(*driver, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "store: %v\n", err)
		os.Exit(1)
	}
	defer closeStore()

	inv := store.NewInventory(kv, logger)
	led := ledger.New(inv, logger)
	builder := reports.NewBuilder(inv, led)

	f, err := os.Create(*out)
	if err != nil {
		fmt.Fprintf(os.Stderr, "create output: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	switch *report {
	case "valuation":
		err = builder.WriteValuation(ctx, f)
	case "stock-take-variance":
		err = builder.WriteStockTakeVariance(ctx, f)
	default:
		fmt.Fprintf(os.Stderr, "unknown report %q\n", *report)
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "export: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("wrote", *out)
}

func openStore(driver string, logger *logrus.Logger) (store.Store, func(), error) {
	if driver == "" {
		driver = strings.ToLower(strings.TrimSpace(os.Getenv("STORE_DRIVER")))
	}
	switch driver {
	case "", "redis":
		config.ConnectRedisWithRetry()
		rdb := config.GetRedisDB()
		return store.NewRedisStore(rdb, config.GetRedisLock()), func() { _ = rdb.Close() }, nil
	case "mongo":
		dbName := os.Getenv("MONGO_DB")
		if dbName == "" {
			dbName = "smartpos"
		}
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(os.Getenv("MONGO_URI")))
		if err != nil {
			return nil, nil, err
		}
		closeFn := func() { _ = client.Disconnect(context.Background()) }
		return store.NewMongoStore(client.Database(dbName), "inventory_kv"), closeFn, nil
	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", driver)
	}
}
