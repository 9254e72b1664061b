// Package server wires the services into the fiber app and its routes.
package server

import (
	"log"
	"strings"

	"lager-backend/internal/access"
	"lager-backend/internal/audit"
	"lager-backend/internal/auth"
	"lager-backend/internal/config"
	"lager-backend/internal/events"
	"lager-backend/internal/idempotency"
	"lager-backend/internal/inventory"
	"lager-backend/internal/lager"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"gorm.io/gorm"
)

type Deps struct {
	Config    *config.Config
	DB        *gorm.DB
	Guard     idempotency.Guard // nil uses an in-process guard
	Publisher events.Publisher  // nil drops events
	AccessLog bool
}

func New(d Deps) *fiber.App {
	cfg := d.Config

	app := fiber.New(fiber.Config{
		AppName:   "lager-backend",
		BodyLimit: 8 << 20,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if e, ok := err.(*fiber.Error); ok {
				return c.Status(e.Code).JSON(fiber.Map{
					"error": e.Message,
				})
			}
			log.Println("Unexpected error:", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "unexpected server error",
			})
		},
	})

	app.Use(recover.New())
	if d.AccessLog {
		app.Use(logger.New())
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(cfg.CORSOriginList(), ","),
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowMethods:     "GET,POST,OPTIONS",
		AllowCredentials: true,
	}))

	accounts := auth.NewAccounts(d.DB)
	guard := access.NewGuard(d.DB)
	lagers := lager.NewService(d.DB)
	ledger := inventory.NewLedger(d.DB, d.Guard, d.Publisher)
	catalog := inventory.NewCatalog(d.DB, ledger)
	images := inventory.ImageStore{Dir: cfg.ArticleImagePath}

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Static("/media", cfg.ArticleImagePath)

	// Public auth
	app.Get("/register", auth.RegisterFormHandler())
	app.Post("/register", auth.RegisterHandler(cfg, accounts))
	app.Get("/login", auth.LoginFormHandler())
	app.Post("/login", auth.LoginHandler(cfg, accounts))
	app.Post("/logout", auth.LogoutHandler(cfg))

	// Protected
	session := auth.RequireSession(cfg)
	member := access.RequireMember(guard)
	owner := access.RequireOwner(guard)

	app.Get("/lager", session, lager.ListHandler(lagers))
	app.Get("/lager/create", session, lager.CreateFormHandler())
	app.Post("/lager/create", session, lager.CreateHandler(lagers))

	app.Get("/lager/:id<int>", session, member, lager.DetailHandler(lagers, catalog))
	app.Get("/lager/:id<int>/current_status", session, member, inventory.CurrentStatusHandler(catalog))
	app.Get("/lager/:id<int>/current_status/export", session, member, inventory.CurrentStatusExportHandler(catalog))
	app.Get("/lager/:id<int>/transaction", session, member, inventory.TransactionFormHandler(catalog))
	app.Post("/lager/:id<int>/transaction", session, member, inventory.TransactionHandler(catalog, ledger))
	app.Get("/lager/:id<int>/artikel/:artikelId<int>/ledger", session, member, inventory.ArtikelLedgerHandler(catalog, ledger))
	app.Get("/lager/:id<int>/artikel_management", session, member, inventory.ArtikelManagementHandler(catalog))
	app.Get("/lager/:id<int>/artikel_management/artikel_create", session, member, inventory.ArtikelCreateFormHandler())
	app.Post("/lager/:id<int>/artikel_management/artikel_create", session, member, inventory.ArtikelCreateHandler(catalog, images))
	app.Get("/lager/:id<int>/audit", session, member, audit.ListAuditLogsHandler(d.DB))

	// Owner only
	app.Get("/lager/:id<int>/grant_access", session, owner, lager.GrantAccessFormHandler(lagers))
	app.Post("/lager/:id<int>/grant_access", session, owner, lager.GrantAccessHandler(lagers))
	app.Post("/lager/:id<int>/remove_user/:userId<int>", session, owner, lager.RemoveUserHandler(lagers))

	articleMember := access.RequireArticleMember(guard)
	app.Get("/artikel/:id<int>/edit", session, articleMember, inventory.ArtikelEditFormHandler(catalog))
	app.Post("/artikel/:id<int>/edit", session, articleMember, inventory.ArtikelEditHandler(catalog, images))

	return app
}
