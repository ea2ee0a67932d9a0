package datastore

import (
	"fmt"
	"net"
	"strconv"
	"time"

	mysqldriver "github.com/go-sql-driver/mysql"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/tphakala/pixalb/internal/conf"
)

func mysqlDSN(settings conf.MySQLSettings) string {
	cfg := mysqldriver.NewConfig()
	cfg.User = settings.Username
	cfg.Passwd = settings.Password
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(settings.Host, strconv.Itoa(settings.Port))
	cfg.DBName = settings.Database
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	cfg.Params = map[string]string{"charset": "utf8mb4"}
	return cfg.FormatDSN()
}

func openMySQL(settings conf.MySQLSettings, gormConfig *gorm.Config) (*gorm.DB, string, error) {
	db, err := gorm.Open(mysql.Open(mysqlDSN(settings)), gormConfig)
	if err != nil {
		return nil, "", dbError(fmt.Errorf("failed to open MySQL database: %w", err), "open",
			"host", settings.Host,
			"port", settings.Port,
			"database", settings.Database)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, "", dbError(err, "open", "database", settings.Database)
	}
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return db, fmt.Sprintf("%s@%s/%s", settings.Username,
		net.JoinHostPort(settings.Host, strconv.Itoa(settings.Port)), settings.Database), nil
}
