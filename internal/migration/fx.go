package migration

import (
	"github.com/smallbiznis/arrears/internal/config"
	portfoliodomain "github.com/smallbiznis/arrears/internal/portfolio/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if cfg.DBType == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			return RunMigrations(sqlDB)
		}

		// sqlite/mysql dev mode
		return AutoMigrate(conn)
	}),
)

func AutoMigrate(conn *gorm.DB) error {
	return conn.AutoMigrate(
		&portfoliodomain.Customer{},
		&portfoliodomain.Bill{},
		&portfoliodomain.Payment{},
		&portfoliodomain.CollectionAction{},
		&portfoliodomain.ImportRun{},
	)
}
