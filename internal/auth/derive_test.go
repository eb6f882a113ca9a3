package auth

import "testing"

func TestDeriveCredential_Deterministic(t *testing.T) {
	salt := []byte("fixed-salt-000000")
	a := deriveCredential("alice", "hunter2", salt, DefaultIters)
	b := deriveCredential("alice", "hunter2", salt, DefaultIters)
	if string(a.StoredKey) != string(b.StoredKey) || string(a.ServerKey) != string(b.ServerKey) {
		t.Fatal("deriveCredential is not deterministic for identical inputs")
	}
}

func TestDeriveCredential_DifferentPasswordsDiffer(t *testing.T) {
	salt := []byte("fixed-salt-000000")
	a := deriveCredential("alice", "hunter2", salt, DefaultIters)
	b := deriveCredential("alice", "different", salt, DefaultIters)
	if string(a.StoredKey) == string(b.StoredKey) {
		t.Fatal("different passwords produced identical StoredKey")
	}
}

func TestDeriveCredential_KeyLength(t *testing.T) {
	salt := []byte("s")
	c := deriveCredential("bob", "pw", salt, 1000)
	if len(c.StoredKey) != 32 {
		t.Errorf("StoredKey len = %d, want 32", len(c.StoredKey))
	}
	if len(c.ServerKey) != 32 {
		t.Errorf("ServerKey len = %d, want 32", len(c.ServerKey))
	}
}
