/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package config

import "github.com/zalando/go-keyring"

// Service/keys for OS keyring.
const (
	keyringService = "GoRefCanvas"
	keyringToken   = "fetch_token"
)

// TokenStore abstracts the keyring so tests can stub it.
type TokenStore interface {
	Get(service, key string) (string, error)
	Set(service, key, value string) error
	Delete(service, key string) error
}

var tokenStore TokenStore = osKeyring{}

// osKeyring implements TokenStore using the OS keyring via github.com/zalando/go-keyring.
type osKeyring struct{}

func (osKeyring) Get(service, key string) (string, error) { return keyring.Get(service, key) }
func (osKeyring) Set(service, key, value string) error    { return keyring.Set(service, key, value) }
func (osKeyring) Delete(service, key string) error        { return keyring.Delete(service, key) }

// SetTokenStore swaps the credential backend and returns a function restoring the previous one.
func SetTokenStore(ts TokenStore) (restore func()) {
	prev := tokenStore
	tokenStore = ts
	return func() { tokenStore = prev }
}

// FetchToken returns the bearer token for remote image hosts, or "" when none is stored.
func FetchToken() string {
	tok, err := tokenStore.Get(keyringService, keyringToken)
	if err != nil {
		return ""
	}
	return tok
}

// ClearFetchToken removes the stored token.
func ClearFetchToken() error {
	err := tokenStore.Delete(keyringService, keyringToken)
	if err == keyring.ErrNotFound {
		return nil
	}
	return err
}
