package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigString(t *testing.T) {
	assert.Equal(t, "host=127.0.0.1 dbname=postgres port=5432 sslmode=prefer", Config{}.String())
	assert.Equal(t, "host=db dbname=sale port=6432 sslmode=disable user=u password=p", Config{
		Host: "db", Port: "6432", DBName: "sale", SSLMode: "disable", User: "u", Password: "p",
	}.String())
	assert.Equal(t, "postgres://x", Config{Host: "db", URL: "postgres://x"}.String())
}

func TestConfigMigrateURL(t *testing.T) {
	assert.Equal(t, "postgres://127.0.0.1:5432/postgres?sslmode=prefer", Config{}.MigrateURL())
	assert.Equal(t, "postgres://u:p%40ss@db:6432/sale?sslmode=disable", Config{
		Host: "db", Port: "6432", DBName: "sale", SSLMode: "disable", User: "u", Password: "p@ss",
	}.MigrateURL())
}
