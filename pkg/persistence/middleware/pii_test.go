package middleware_test

import (
	"context"
	"testing"
	"time"

	"github.com/Vijaya2621/Chatbot-using-API/pkg/adapters/memory"
	"github.com/Vijaya2621/Chatbot-using-API/pkg/domain"
	"github.com/Vijaya2621/Chatbot-using-API/pkg/persistence/middleware"
)

func TestPIIMiddleware_Masking(t *testing.T) {
	// Setup
	underlyingStore := memory.NewStore()
	// Mask e-mail addresses and SSN-like numbers
	mw := middleware.NewPIIMiddleware([]string{`[\w.+-]+@[\w-]+\.[\w.]+`, `\b\d{3}-\d{2}-\d{4}\b`})
	secureStore := mw(underlyingStore)

	ctx := context.Background()
	sessionID := "pii-session"
	session := domain.NewSession(sessionID, nil, "", time.Now())
	session.AppendMessage(domain.RoleUser, "my name is Jo, mail jo@example.com", time.Now())
	session.AppendMessage(domain.RoleUser, "ssn 999-99-9999", time.Now())
	session.AppendMessage(domain.RoleAssistant, "nothing to hide", time.Now())

	// 1. Save
	if err := secureStore.Save(ctx, sessionID, session); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// Verify In-Memory record is NOT MODIFIED (Immutability check)
	if session.ChatHistory[0].Content != "my name is Jo, mail jo@example.com" {
		t.Error("Middleware modified original record in memory!")
	}

	// 2. Load from Underlying Store (Should be masked)
	stored, err := underlyingStore.Load(ctx, sessionID)
	if err != nil {
		t.Fatalf("Underlying load failed: %v", err)
	}

	if got := stored.ChatHistory[0].Content; got != "my name is Jo, mail ***" {
		t.Errorf("E-mail should be masked, got: %v", got)
	}
	if got := stored.ChatHistory[1].Content; got != "ssn ***" {
		t.Errorf("SSN should be masked, got: %v", got)
	}
	if got := stored.ChatHistory[2].Content; got != "nothing to hide" {
		t.Errorf("Safe content shouldn't be masked, got: %v", got)
	}
}

func TestChain_Order(t *testing.T) {
	underlyingStore := memory.NewStore()
	key := make([]byte, 32)
	store := middleware.Chain(underlyingStore,
		middleware.NewPIIMiddleware([]string{`secret`}),
		middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: key}),
	)

	ctx := context.Background()
	session := domain.NewSession("s1", nil, "", time.Now())
	session.AppendMessage(domain.RoleUser, "a secret word", time.Now())
	if err := store.Save(ctx, "s1", session); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// Masking runs before encryption, so the decrypted text is masked.
	loaded, err := store.Load(ctx, "s1")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got := loaded.ChatHistory[0].Content; got != "a *** word" {
		t.Errorf("expected masked content, got %q", got)
	}
}
