package database

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/cnhs-records-api/pkg/config"
)

func TestConnectionStrings(t *testing.T) {
	cfg := config.DatabaseConfig{Host: "db", Port: 5432, User: "cnhs", Password: "p@ss word", Name: "records", SSLMode: "disable"}

	assert.Equal(t, "host=db port=5432 user=cnhs password=p@ss word dbname=records sslmode=disable", DSN(cfg))
	assert.Equal(t, "postgres://cnhs:p%40ss%20word@db:5432/records?sslmode=disable", URL(cfg))
}
