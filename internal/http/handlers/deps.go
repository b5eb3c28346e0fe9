package handlers

import (
	"github.com/jmoiron/sqlx"

	"orderbot/internal/config"
	"orderbot/internal/repos"
	"orderbot/internal/services"
)

type Deps struct {
	WebhookHandler *WebhookHandler
}

func NewDeps(db *sqlx.DB, cfg config.Config, gw services.Gateway) *Deps {
	prodRepo := repos.NewProductRepo(db)
	orderRepo := repos.NewOrderRepo(db)
	msgRepo := repos.NewMessageRepo(db)

	catalogSvc := services.NewCatalogService(prodRepo)
	orderSvc := services.NewOrderService(prodRepo, orderRepo)
	ingestSvc := services.NewIngestService(msgRepo, catalogSvc, orderSvc, gw)

	return &Deps{
		WebhookHandler: &WebhookHandler{VerifyToken: cfg.VerifyToken, Ingest: ingestSvc},
	}
}
