package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	httpadapter "github.com/JoeShih716/go-balance-ledger/internal/app/balance/adapter/in/http"
	memoryadapter "github.com/JoeShih716/go-balance-ledger/internal/app/balance/adapter/out/memory"
	mysqladapter "github.com/JoeShih716/go-balance-ledger/internal/app/balance/adapter/out/mysql"
	"github.com/JoeShih716/go-balance-ledger/internal/app/balance/usecase"
	"github.com/JoeShih716/go-balance-ledger/pkg/mysql"
	"github.com/JoeShih716/go-balance-ledger/pkg/wal"
)

// StorageDriver 儲存層種類
const (
	StorageDriverMySQL  = "mysql"
	StorageDriverMemory = "memory"
)

type Config struct {
	Server struct {
		Listen string `yaml:"listen"`
	} `yaml:"server"`
	Storage struct {
		Driver  string `yaml:"driver"`   // "mysql" 或 "memory"
		WALPath string `yaml:"wal_path"` // memory 模式的落地檔
	} `yaml:"storage"`
	MySQL  mysql.Config `yaml:"mysql"`
	Ledger struct {
		MaxAmount string `yaml:"max_amount"` // 單筆金額上限
	} `yaml:"ledger"`
	Identity struct {
		SeedUserIDs []int64 `yaml:"seed_user_ids"` // memory 模式的身份目錄
	} `yaml:"identity"`
	Log struct {
		Development bool `yaml:"development"`
	} `yaml:"log"`
}

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	flag.Parse()

	// 1. 載入設定
	cfg := loadConfig(*configPath)

	logger := newLogger(cfg.Log.Development)
	defer logger.Sync()

	maxAmount, err := decimal.NewFromString(cfg.Ledger.MaxAmount)
	if err != nil {
		logger.Fatal("invalid ledger.max_amount", zap.String("value", cfg.Ledger.MaxAmount), zap.Error(err))
	}

	// 2. 依設定挑選儲存層與身份目錄
	var (
		store    usecase.Store
		identity usecase.IdentityDirectory
		closers  []func() error
	)

	switch cfg.Storage.Driver {
	case StorageDriverMySQL:
		client, err := mysql.NewClient(cfg.MySQL, logger)
		if err != nil {
			logger.Fatal("failed to connect to mysql", zap.Error(err))
		}
		closers = append(closers, client.Close)

		mysqlStore := mysqladapter.NewStore(client, logger)
		if err := mysqlStore.AutoMigrate(); err != nil {
			logger.Fatal("failed to migrate schema", zap.Error(err))
		}
		store = mysqlStore
		identity = mysqladapter.NewIdentityDirectory(client)
		logger.Info("connected to mysql", zap.String("host", cfg.MySQL.Host))

	case StorageDriverMemory:
		var walFile *wal.WAL
		if cfg.Storage.WALPath != "" {
			walFile, err = wal.NewWAL(cfg.Storage.WALPath)
			if err != nil {
				logger.Fatal("failed to open wal", zap.Error(err))
			}
		}

		memStore, err := memoryadapter.NewStore(walFile, logger)
		if err != nil {
			logger.Fatal("failed to init memory store", zap.Error(err))
		}
		closers = append(closers, memStore.Close)
		store = memStore
		identity = memoryadapter.NewIdentityDirectory(cfg.Identity.SeedUserIDs...)
		logger.Info("using memory store", zap.String("wal_path", cfg.Storage.WALPath))

	default:
		logger.Fatal("invalid storage driver", zap.String("driver", cfg.Storage.Driver))
	}

	// 3. 組裝帳務服務與 HTTP adapter
	service := usecase.NewService(store, identity, logger, maxAmount)
	app := httpadapter.NewApp(service, logger)

	go func() {
		logger.Info("starting http server", zap.String("listen", cfg.Server.Listen))
		if err := app.Listen(cfg.Server.Listen); err != nil {
			logger.Fatal("failed to serve", zap.Error(err))
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Error("shutdown error", zap.Error(err))
	}
	for _, close := range closers {
		if err := close(); err != nil {
			logger.Error("close error", zap.Error(err))
		}
	}
	logger.Info("server exited")
}

func loadConfig(path string) Config {
	cfgData, err := os.ReadFile(path)
	if err != nil {
		panic("failed to read config file: " + err.Error())
	}
	var cfg Config
	if err := yaml.Unmarshal(cfgData, &cfg); err != nil {
		panic("failed to parse config: " + err.Error())
	}

	// 補全預設配置 (如果 yaml 沒寫)
	if cfg.Server.Listen == "" {
		cfg.Server.Listen = ":8080"
	}
	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = StorageDriverMemory
	}
	if cfg.Ledger.MaxAmount == "" {
		cfg.Ledger.MaxAmount = "100000"
	}
	if cfg.MySQL.MaxOpenConns == 0 {
		cfg.MySQL.MaxOpenConns = 100
	}
	if cfg.MySQL.MaxIdleConns == 0 {
		cfg.MySQL.MaxIdleConns = 10
	}
	if cfg.MySQL.ConnMaxLifetime == 0 {
		cfg.MySQL.ConnMaxLifetime = 30 * time.Minute
	}
	return cfg
}

func newLogger(development bool) *zap.Logger {
	if development {
		logger, err := zap.NewDevelopment()
		if err != nil {
			panic(err)
		}
		return logger
	}
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	return logger
}
