package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConnectionParams_ConnString(t *testing.T) {
	params := ConnectionParams{
		Host:     "localhost",
		Port:     5432,
		User:     "proplens",
		Password: "secret",
		DBName:   "proplens",
		SSLMode:  "disable",
	}

	assert.Equal(t,
		"host=localhost port=5432 user=proplens password=secret dbname=proplens sslmode=disable",
		params.ConnString(),
	)
}

func TestDB_CloseNil(t *testing.T) {
	var db *DB
	assert.NotPanics(t, db.Close)
}
