package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/gamercodedev-jpg/smartpos-inventory/config"
	"github.com/gamercodedev-jpg/smartpos-inventory/hqsync"
	"github.com/gamercodedev-jpg/smartpos-inventory/ledger"
	"github.com/gamercodedev-jpg/smartpos-inventory/models"
	"github.com/gamercodedev-jpg/smartpos-inventory/reports"
	"github.com/gamercodedev-jpg/smartpos-inventory/store"
	"github.com/gamercodedev-jpg/smartpos-inventory/workflow"
)

const defaultPort = "8080"

type app struct {
	ledger    *ledger.Service
	recipes   *workflow.RecipeProcessor
	receipts  *workflow.ReceiptProcessor
	batches   *workflow.BatchProductionProcessor
	transfers *workflow.TransferProcessor
	takes     *workflow.StockTakeProcessor
	reports   *reports.Builder
}

// writeError maps typed domain errors onto HTTP statuses. The error value
// itself is the response body so callers see shortfall lines and missing
// ingredient ids, not just a message.
func writeError(c *gin.Context, err error) {
	var (
		validation   *models.ValidationError
		notFound     *models.NotFoundError
		insufficient *models.InsufficientStockError
		incomplete   *models.RecipeIncompleteError
		mismatch     *models.UnitMismatchError
		conflict     *models.ConflictError
	)
	switch {
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, gin.H{"error": validation.Error()})
	case errors.As(err, &mismatch):
		c.JSON(http.StatusBadRequest, gin.H{"error": mismatch.Error(), "detail": mismatch})
	case errors.As(err, &incomplete):
		c.JSON(http.StatusBadRequest, gin.H{"error": incomplete.Error(), "detail": incomplete})
	case errors.As(err, &notFound):
		c.JSON(http.StatusNotFound, gin.H{"error": notFound.Error()})
	case errors.As(err, &insufficient):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": insufficient.Error(), "detail": insufficient})
	case errors.As(err, &conflict):
		c.JSON(http.StatusConflict, gin.H{"error": conflict.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func (a *app) registerRoutes(r *gin.Engine) {
	api := r.Group("/api")

	api.POST("/stock-items", func(c *gin.Context) {
		var input models.NewStockItem
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		item, err := a.ledger.CreateStockItem(c.Request.Context(), &input)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, item)
	})
	api.GET("/stock-items", func(c *gin.Context) {
		items, err := a.ledger.Snapshot(c.Request.Context())
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, items)
	})
	api.GET("/stock-items/:id", func(c *gin.Context) {
		item, err := a.ledger.GetStockItem(c.Request.Context(), c.Param("id"))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, item)
	})
	api.PATCH("/stock-items/:id", func(c *gin.Context) {
		var input ledger.StockItemUpdate
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		item, err := a.ledger.UpdateStockItem(c.Request.Context(), c.Param("id"), &input)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, item)
	})
	api.DELETE("/stock-items/:id", func(c *gin.Context) {
		if err := a.ledger.DeleteStockItem(c.Request.Context(), c.Param("id")); err != nil {
			writeError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	})

	api.PUT("/recipes", func(c *gin.Context) {
		var input models.NewRecipe
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		recipe, err := a.recipes.UpsertRecipe(c.Request.Context(), &input)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, recipe)
	})
	api.GET("/recipes", func(c *gin.Context) {
		list, err := a.recipes.ListRecipes(c.Request.Context())
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, list)
	})
	api.GET("/recipes/:id", func(c *gin.Context) {
		recipe, err := a.recipes.GetRecipe(c.Request.Context(), c.Param("id"))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, recipe)
	})
	api.DELETE("/recipes/:id", func(c *gin.Context) {
		if err := a.recipes.DeleteRecipe(c.Request.Context(), c.Param("id")); err != nil {
			writeError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	})

	// sale-time ingredient deduction
	api.POST("/sales/deduct", func(c *gin.Context) {
		var input struct {
			ItemId string          `json:"item_id" binding:"required"`
			Qty    decimal.Decimal `json:"qty"`
			Strict bool            `json:"strict"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		result, err := a.recipes.DeepDeduct(c.Request.Context(), input.ItemId, input.Qty, input.Strict)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	})

	api.POST("/grvs", func(c *gin.Context) {
		var input models.NewGrv
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		grv, err := a.receipts.CreateGrv(c.Request.Context(), &input)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, grv)
	})
	api.PUT("/grvs/:id", func(c *gin.Context) {
		var input models.NewGrv
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		grv, err := a.receipts.UpdateGrv(c.Request.Context(), c.Param("id"), &input)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, grv)
	})
	api.POST("/grvs/:id/confirm", func(c *gin.Context) {
		grv, err := a.receipts.ConfirmGrv(c.Request.Context(), c.Param("id"))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, grv)
	})
	api.POST("/grvs/:id/cancel", func(c *gin.Context) {
		grv, err := a.receipts.CancelGrv(c.Request.Context(), c.Param("id"))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, grv)
	})
	api.DELETE("/grvs/:id", func(c *gin.Context) {
		if err := a.receipts.DeleteGrv(c.Request.Context(), c.Param("id")); err != nil {
			writeError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	})
	api.GET("/grvs", func(c *gin.Context) {
		list, err := a.receipts.ListGrvs(c.Request.Context())
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, list)
	})
	api.GET("/grvs/:id", func(c *gin.Context) {
		grv, err := a.receipts.GetGrv(c.Request.Context(), c.Param("id"))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, grv)
	})

	api.POST("/batches", func(c *gin.Context) {
		var input models.NewBatchProduction
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		batch, err := a.batches.RecordBatchProduction(c.Request.Context(), &input)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, batch)
	})
	api.POST("/batches/:id/revert", func(c *gin.Context) {
		if err := a.batches.RevertBatchProduction(c.Request.Context(), c.Param("id")); err != nil {
			writeError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	})
	api.GET("/batches", func(c *gin.Context) {
		list, err := a.batches.ListBatchProductions(c.Request.Context())
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, list)
	})
	api.GET("/batches/:id", func(c *gin.Context) {
		batch, err := a.batches.GetBatchProduction(c.Request.Context(), c.Param("id"))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, batch)
	})

	api.POST("/stock-issues", func(c *gin.Context) {
		var input models.NewStockIssue
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		issues, err := a.transfers.CreateStockIssue(c.Request.Context(), &input)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, issues)
	})
	api.DELETE("/stock-issues/:id", func(c *gin.Context) {
		if err := a.transfers.DeleteStockIssue(c.Request.Context(), c.Param("id")); err != nil {
			writeError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	})
	api.GET("/stock-issues", func(c *gin.Context) {
		list, err := a.transfers.ListStockIssues(c.Request.Context())
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, list)
	})
	api.GET("/stock-issues/:id", func(c *gin.Context) {
		issue, err := a.transfers.GetStockIssue(c.Request.Context(), c.Param("id"))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, issue)
	})

	api.POST("/stock-takes", func(c *gin.Context) {
		var input models.NewStockTake
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		session, err := a.takes.RecordStockTake(c.Request.Context(), &input)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, session)
	})
	api.GET("/stock-takes", func(c *gin.Context) {
		list, err := a.takes.ListStockTakes(c.Request.Context())
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, list)
	})
	api.GET("/stock-takes/:id", func(c *gin.Context) {
		session, err := a.takes.GetStockTake(c.Request.Context(), c.Param("id"))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, session)
	})

	api.GET("/reports/valuation.xlsx", func(c *gin.Context) {
		c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Header("Content-Disposition", "attachment; filename=valuation.xlsx")
		if err := a.reports.WriteValuation(c.Request.Context(), c.Writer); err != nil {
			writeError(c, err)
		}
	})
	api.GET("/reports/stock-take-variance.xlsx", func(c *gin.Context) {
		c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Header("Content-Disposition", "attachment; filename=stock-take-variance.xlsx")
		if err := a.reports.WriteStockTakeVariance(c.Request.Context(), c.Writer); err != nil {
			writeError(c, err)
		}
	})
}

// openStore picks the KV backend from STORE_DRIVER: redis (default),
// mongo, or memory for local runs.
func openStore(logger *logrus.Logger) (store.Store, func(), error) {
	driver := strings.ToLower(strings.TrimSpace(os.Getenv("STORE_DRIVER")))
	switch driver {
	case "", "redis":
		config.ConnectRedisWithRetry()
		rdb := config.GetRedisDB()
		return store.NewRedisStore(rdb, config.GetRedisLock()), func() { _ = rdb.Close() }, nil
	case "mongo":
		uri := os.Getenv("MONGO_URI")
		dbName := os.Getenv("MONGO_DB")
		if dbName == "" {
			dbName = "smartpos"
		}
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
		if err != nil {
			return nil, nil, err
		}
		if err := client.Ping(ctx, nil); err != nil {
			return nil, nil, err
		}
		closeFn := func() { _ = client.Disconnect(context.Background()) }
		return store.NewMongoStore(client.Database(dbName), "inventory_kv"), closeFn, nil
	case "memory":
		logger.Warn("STORE_DRIVER=memory; state will not survive a restart")
		return store.NewMemoryStore(), func() {}, nil
	default:
		return nil, nil, errors.New("unknown STORE_DRIVER " + driver)
	}
}

func buildSyncTargets(logger *logrus.Logger) []hqsync.Target {
	var targets []hqsync.Target
	if os.Getenv("HQ_API_BASE_URL") != "" {
		target, err := hqsync.NewHTTPTarget()
		if err != nil {
			config.LogError(logger, "server.go", "buildSyncTargets", "http target", nil, err)
		} else {
			targets = append(targets, target)
		}
	}
	if os.Getenv("HQ_DB_HOST") != "" {
		target, err := hqsync.NewDatabaseTarget()
		if err != nil {
			config.LogError(logger, "server.go", "buildSyncTargets", "database target", nil, err)
		} else {
			targets = append(targets, target)
		}
	}
	return targets
}

func main() {
	port := os.Getenv("API_PORT")
	if port == "" {
		port = os.Getenv("PORT")
	}
	if port == "" {
		port = defaultPort
	}

	logger := config.GetLogger()

	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	kv, closeStore, err := openStore(logger)
	if err != nil {
		logger.WithFields(logrus.Fields{"field": "store"}).Panic(err.Error())
	}
	defer closeStore()

	inv := store.NewInventory(kv, logger)
	led := ledger.New(inv, logger)

	a := &app{
		ledger:    led,
		recipes:   workflow.NewRecipeProcessor(inv, led, logger),
		receipts:  workflow.NewReceiptProcessor(inv, led, logger),
		batches:   workflow.NewBatchProductionProcessor(inv, led, logger),
		transfers: workflow.NewTransferProcessor(inv, led, logger),
		takes:     workflow.NewStockTakeProcessor(inv, led, logger),
		reports:   reports.NewBuilder(inv, led),
	}

	var worker *hqsync.Worker
	if targets := buildSyncTargets(logger); len(targets) > 0 {
		worker = hqsync.NewWorker(targets, logger)
		worker.Attach(led)
		worker.Start()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(customErrorLogger(logger))
	r.Use(func(c *gin.Context) {
		cid := c.GetHeader("x-correlation-id")
		if cid == "" {
			cid = uuid.NewString()
		}
		c.Header("x-correlation-id", cid)
		c.Next()
	})

	corsConfig := cors.DefaultConfig()
	if allowed := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS")); allowed != "" {
		corsConfig.AllowOrigins = strings.Split(allowed, ",")
	} else {
		corsConfig.AllowAllOrigins = true
	}
	r.Use(cors.New(corsConfig))

	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	a.registerRoutes(r)

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}
	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- srv.ListenAndServe()
	}()

	logger.WithFields(logrus.Fields{"info": "listening"}).Info("inventory api on port ", port)

	select {
	case <-sigCtx.Done():
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithFields(logrus.Fields{"field": "http"}).Error("server stopped unexpectedly: " + err.Error())
		}
	}

	if worker != nil {
		worker.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithFields(logrus.Fields{"field": "http"}).Error("graceful shutdown failed: " + err.Error())
	}
}

// customErrorLogger logs only requests that recorded errors.
func customErrorLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 {
			logger.Error(c.Errors.String())
		}
	}
}
