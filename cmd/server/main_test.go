package main

import (
	"testing"

	"novapos/internal/config"
)

func TestValidateSecurityConfigRejectsWeakValues(t *testing.T) {
	cases := []config.Config{
		{AuthSecret: "short", OperatorEmail: "owner@shop.test", OperatorPassword: "Tr0ub4dor&3"},
		{AuthSecret: "0123456789abcdef0123456789abcdef", OperatorEmail: "", OperatorPassword: "Tr0ub4dor&3"},
		{AuthSecret: "0123456789abcdef0123456789abcdef", OperatorEmail: "owner@shop.test", OperatorPassword: "123456"},
		{AuthSecret: "0123456789abcdef0123456789abcdef", OperatorEmail: "owner@shop.test", OperatorPassword: "admin123"},
		{AuthSecret: "0123456789abcdef0123456789abcdef", OperatorEmail: "owner@shop.test", OperatorPassword: "zzzzzzzzzz"},
		{AuthSecret: "0123456789abcdef0123456789abcdef", OperatorEmail: "owner@shop.test", OperatorPassword: "abcdefghij"},
	}
	for i, cfg := range cases {
		if err := validateSecurityConfig(cfg); err == nil {
			t.Fatalf("case %d: expected weak security config to be rejected", i)
		}
	}
}

func TestValidateSecurityConfigAcceptsStrongValues(t *testing.T) {
	err := validateSecurityConfig(config.Config{
		AuthSecret:       "0123456789abcdef0123456789abcdef",
		OperatorEmail:    "owner@shop.test",
		OperatorPassword: "Tr0ub4dor&3",
	})
	if err != nil {
		t.Fatalf("expected strong config to pass, got %v", err)
	}

	err = validateSecurityConfig(config.Config{
		AuthSecret:       "0123456789abcdef0123456789abcdef",
		OperatorEmail:    "owner@shop.test",
		OperatorPassword: "$2a$10$abcdefghijklmnopqrstuuJ8m7mJqQ0m6o0u2cY6k9x1n3s5v7w9y",
	})
	if err != nil {
		t.Fatalf("expected bcrypt hash to pass, got %v", err)
	}
}
