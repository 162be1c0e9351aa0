// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package securedkey

import (
	"path/filepath"
	"testing"
)

func setupStore(t *testing.T) *Store {
	t.Helper()
	store, err := LoadOrCreate(filepath.Join(t.TempDir(), "keys.json"), "admin_key_1234567890abcdef")
	if err != nil {
		t.Fatalf("LoadOrCreate: %v", err)
	}
	return store
}

func searchKeySecret(t *testing.T, store *Store) string {
	t.Helper()
	for _, k := range store.List() {
		if k.Description == "Default Search API Key" {
			return k.Secret
		}
	}
	t.Fatal("default search key not found")
	return ""
}

func TestGenerateAndValidateBasic(t *testing.T) {
	store := setupStore(t)
	secret := searchKeySecret(t, store)

	secured := GenerateSecuredKey(secret, "filters=category%3Aphones&validUntil=9999999999")
	parent, restrictions, ok := Validate(secured, store)
	if !ok {
		t.Fatal("expected valid secured key")
	}
	if parent.Description != "Default Search API Key" {
		t.Errorf("parent = %q", parent.Description)
	}
	if restrictions.Filters != "category:phones" {
		t.Errorf("filters = %q", restrictions.Filters)
	}
	if restrictions.ValidUntil != 9999999999 {
		t.Errorf("validUntil = %d", restrictions.ValidUntil)
	}
}

func TestExpiredKeyRejected(t *testing.T) {
	store := setupStore(t)
	secret := searchKeySecret(t, store)

	secured := GenerateSecuredKey(secret, "validUntil=1000000000")
	if _, _, ok := Validate(secured, store); ok {
		t.Fatal("expected expired key to be rejected")
	}
}

func TestTamperedKeyRejected(t *testing.T) {
	store := setupStore(t)
	secret := searchKeySecret(t, store)

	secured := GenerateSecuredKey(secret, "filters=category%3Aphones") + "X"
	if _, _, ok := Validate(secured, store); ok {
		t.Fatal("expected tampered key to be rejected")
	}
}

func TestWrongParentKeyRejected(t *testing.T) {
	store := setupStore(t)
	secured := GenerateSecuredKey("nonexistent_key_value", "filters=category%3Aphones")
	if _, _, ok := Validate(secured, store); ok {
		t.Fatal("expected unknown-parent key to be rejected")
	}
}

func TestAdminKeyCannotBeParent(t *testing.T) {
	store := setupStore(t)
	secured := GenerateSecuredKey("admin_key_1234567890abcdef", "filters=test")
	if _, _, ok := Validate(secured, store); ok {
		t.Fatal("expected admin key to be rejected as a parent")
	}
}

func TestRestrictIndicesParsed(t *testing.T) {
	store := setupStore(t)
	secret := searchKeySecret(t, store)

	secured := GenerateSecuredKey(secret, `restrictIndices=%5B%22products%22%2C%22users%22%5D&validUntil=9999999999`)
	_, restrictions, ok := Validate(secured, store)
	if !ok {
		t.Fatal("expected valid secured key")
	}
	if len(restrictions.RestrictIndices) != 2 || restrictions.RestrictIndices[0] != "products" || restrictions.RestrictIndices[1] != "users" {
		t.Errorf("restrictIndices = %v", restrictions.RestrictIndices)
	}
}

func TestNoRestrictionsStillValid(t *testing.T) {
	store := setupStore(t)
	secret := searchKeySecret(t, store)

	secured := GenerateSecuredKey(secret, "")
	if _, _, ok := Validate(secured, store); !ok {
		t.Fatal("expected secured key with no restrictions to still validate")
	}
}

func TestEmptyStringNotValid(t *testing.T) {
	store := setupStore(t)
	if _, _, ok := Validate("", store); ok {
		t.Fatal("expected empty string to be rejected")
	}
}

func TestGarbageNotValid(t *testing.T) {
	store := setupStore(t)
	if _, _, ok := Validate("not_base64!!!", store); ok {
		t.Fatal("expected garbage to be rejected")
	}
}

func TestDeletedParentKeyInvalidatesSecuredKey(t *testing.T) {
	store := setupStore(t)
	secret := searchKeySecret(t, store)
	var parentID string
	for _, k := range store.List() {
		if k.Secret == secret {
			parentID = k.ID
		}
	}

	secured := GenerateSecuredKey(secret, "filters=brand%3ASamsung&validUntil=9999999999")
	if _, _, ok := Validate(secured, store); !ok {
		t.Fatal("expected valid secured key before deletion")
	}

	if err := store.DeleteKey(parentID); err != nil {
		t.Fatalf("DeleteKey: %v", err)
	}
	if _, _, ok := Validate(secured, store); ok {
		t.Fatal("expected secured key to be invalid after parent deletion")
	}
}

func TestIndexPatternMatchesExact(t *testing.T) {
	key := &Key{Restrictions: Restrictions{RestrictIndices: []string{"products"}}}
	if !key.AllowsIndex("products") {
		t.Error("expected products to match")
	}
	if key.AllowsIndex("users") {
		t.Error("expected users not to match")
	}
}

func TestIndexPatternMatchesWildcard(t *testing.T) {
	key := &Key{Restrictions: Restrictions{RestrictIndices: []string{"dev_*"}}}
	if !key.AllowsIndex("dev_products") {
		t.Error("expected dev_products to match dev_*")
	}
	if key.AllowsIndex("prod_products") {
		t.Error("expected prod_products not to match dev_*")
	}
}

func TestAllowsIndexNoRestrictionsAllowsAny(t *testing.T) {
	key := &Key{}
	if !key.AllowsIndex("anything") {
		t.Error("expected no restrictions to allow any index")
	}
}
