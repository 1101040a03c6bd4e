package database

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
)

func TestConnectSQLite(t *testing.T) {
	if err := Connect("sqlite", "file:database_test?mode=memory&cache=shared", Options{}); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	if GetDB() == nil {
		t.Fatal("Expected DB to be set")
	}
	if err := GetDB().Exec("SELECT 1").Error; err != nil {
		t.Errorf("Expected working connection: %v", err)
	}
}

func TestConnectUnknownDriver(t *testing.T) {
	if err := Connect("oracle", "whatever", Options{}); err == nil {
		t.Error("Expected error for unsupported driver")
	}
}

func TestConnectRedis(t *testing.T) {
	client, err := ConnectRedis("", "", 0)
	if err != nil || client != nil {
		t.Errorf("Expected (nil, nil) without an address, got (%v, %v)", client, err)
	}

	mr := miniredis.RunT(t)
	client, err = ConnectRedis(mr.Addr(), "", 0)
	if err != nil {
		t.Fatalf("ConnectRedis failed: %v", err)
	}
	defer client.Close()

	mr.Close()
	if _, err := ConnectRedis(mr.Addr(), "", 0); err == nil {
		t.Error("Expected error when redis is unreachable")
	}
}
