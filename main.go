package main

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"luchaserver/apiclient"   //ゲームAPIクライアント
	"luchaserver/auth"        //セッションとトークンストア
	"luchaserver/broadcast"   //タブ間通知用のWebSocketハブ
	"luchaserver/database"    //設定、PostgreSQLとRedisの初期化
	"luchaserver/handlers"    //ログインなどの画面外ハンドラー
	"luchaserver/middlewares" //ロールによるアクセス制御
	"luchaserver/models"      //モデル定義
	"luchaserver/mutations"   //ユーザー操作
	"luchaserver/planner"     //画面ごとのデータ取得
	"luchaserver/screens"     //画面の状態管理
	"luchaserver/utils"       //ロガーの初期化とCronジョブ
)

const viewIdle = 30 * time.Minute

func init() {
	// .env が無い環境（本番）では環境変数をそのまま使う
	_ = godotenv.Load()
}

func main() {
	logger, err := utils.InitLogger() // ロガーの初期化
	if err != nil {
		panic(err) // 失敗した場合はプログラム停止
	}
	defer logger.Sync() // ロガーのクリーンアップ

	config, err := database.LoadConfig("config.json")
	if err != nil {
		logger.Fatal("設定ファイルの読み込みに失敗しました", zap.Error(err))
	}

	// トークンストア: Redisが無ければメモリ
	var store auth.TokenStore
	memStore := auth.NewMemoryStore()
	store = memStore
	if config.RedisAddr != "" {
		rdb, err := database.InitRedis(config, logger)
		if err != nil {
			logger.Fatal("Failed to initialize Redis", zap.Error(err))
		}
		defer rdb.Close()
		store = auth.NewRedisStore(rdb, logger)
		memStore = nil
	}

	api := apiclient.New(config.APIBaseURL, config.Timeout(), logger)
	plan := planner.New(api, logger)
	registry := screens.NewRegistry(plan, config.Timeout(), logger)
	hub := broadcast.NewHub(config.AllowedOrigins, logger)

	provider := auth.NewProvider(store, logger, config.SecureCookies)
	provider.AddNotifier(hub)
	provider.AddNotifier(registry)

	coord := mutations.NewCoordinator(api, registry, logger)
	coord.SetNotifier(hub)

	pruners := utils.Pruners{Views: registry, ViewIdle: viewIdle}
	if memStore != nil {
		pruners.Tokens = memStore
	}

	deps := routeDeps{
		api:      api,
		provider: provider,
		registry: registry,
		coord:    coord,
		hub:      hub,
		logger:   logger,
	}

	// 監査ログ: PostgreSQLが設定されている場合のみ
	coord.SetAuditor(database.NopAuditor{})
	if config.DBHost != "" {
		db, err := database.InitPostgreSQL(config, logger)
		if err != nil {
			logger.Fatal("PostgreSQLの初期化に失敗しました", zap.Error(err))
		}
		if err := database.AutoMigrate(db); err != nil {
			logger.Fatal("マイグレーションに失敗しました", zap.Error(err))
		}
		audit := database.NewAuditRepository(db)
		coord.SetAuditor(audit)
		pruners.Audit = audit
		deps.history = audit
		pruners.AuditRetention = config.AuditRetention()
	}

	// クーロンスケジューラのセットアップと呼び出し
	scheduler, err := utils.CronCleaner(pruners, logger)
	if err != nil {
		logger.Fatal("Cronジョブの登録に失敗しました", zap.Error(err))
	}
	defer scheduler.Stop()

	router := gin.New()
	//リクエストロガーを起動
	router.Use(gin.Recovery(), utils.RequestLogger(logger))

	//CORS（Cross-Origin Resource Sharing）ポリシーを設定
	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins(config),
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	registerRoutes(router, deps)

	logger.Info("server starting", zap.String("addr", config.ListenAddr), zap.String("api", config.APIBaseURL))
	if err := router.Run(config.ListenAddr); err != nil {
		logger.Fatal("Failed to run HTTP server", zap.Error(err))
	}
}

func allowedOrigins(config models.Config) []string {
	if len(config.AllowedOrigins) > 0 {
		return config.AllowedOrigins
	}
	return []string{"http://localhost:5173"}
}

type routeDeps struct {
	api      *apiclient.Client
	provider *auth.Provider
	registry *screens.Registry
	coord    *mutations.Coordinator
	hub      *broadcast.Hub
	history  handlers.AuditReader // nil without PostgreSQL
	logger   *zap.Logger
}

//各HTTPリクエストのルーティング
func registerRoutes(router *gin.Engine, d routeDeps) {
	router.GET("/login", middlewares.RedirectIfAuthenticated(d.provider, "/welcome"), handlers.LoginPage)
	router.POST("/login", handlers.Login(d.api, d.provider, d.logger))
	router.POST("/logout", handlers.Logout(d.provider, d.logger))

	session := router.Group("/", middlewares.RequireSession(d.provider, d.logger))
	session.GET("/welcome", handlers.Welcome)
	session.GET("/dashboard", handlers.Dashboard)
	session.GET("/ws", handlers.WebSocket(d.hub))
	if d.history != nil {
		session.GET("/history", handlers.History(d.history, d.logger))
	}

	activation := router.Group("/activate", middlewares.RequireRole(d.provider, d.logger, models.RoleDictator, models.RoleSponsor))
	activation.GET("", handlers.ActivateForm)
	activation.POST("", handlers.Activate(d.coord, d.provider, d.logger))

	for _, role := range models.Roles {
		g := router.Group("/"+role.Path(), middlewares.RequireRole(d.provider, d.logger, role))
		g.GET("/:page", screens.ViewHandler(d.registry, d.provider, d.logger))
		g.GET("/:page/:id", screens.ViewHandler(d.registry, d.provider, d.logger))
		g.DELETE("/:page", screens.UnmountHandler(d.registry))
		g.DELETE("/:page/:id", screens.UnmountHandler(d.registry))
		g.POST("/actions/:action", screens.ActionHandler(d.coord, d.provider, d.logger))
	}
}
