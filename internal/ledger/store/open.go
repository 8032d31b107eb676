package store

import (
	"database/sql"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Drivers aceitos em STORE_DRIVER.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
)

// Open escolhe a implementação pelo driver. pg e rdb só são exigidos pelo driver que os usa.
func Open(driver string, pg *sql.DB, rdb *redis.Client) (Store, error) {
	switch driver {
	case "", DriverMemory:
		return NewMemory(), nil
	case DriverPostgres:
		if pg == nil {
			return nil, fmt.Errorf("store driver %q needs a postgres connection", driver)
		}
		return NewPostgres(pg), nil
	case DriverRedis:
		if rdb == nil {
			return nil, fmt.Errorf("store driver %q needs a redis client", driver)
		}
		return NewRedis(rdb), nil
	}
	return nil, fmt.Errorf("unknown store driver %q", driver)
}
