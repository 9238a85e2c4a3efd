package repositories

import (
	"fmt"
	"strconv"

	"github.com/vidfriends/linkresolver/internal/resolver"
)

// Keys of the rows stored in the settings table.
const (
	SettingAPIKey        = "api_key"
	SettingAPIHost       = "api_host"
	SettingBaseURL       = "base_url"
	SettingMethod        = "method"
	SettingUseProxy      = "use_proxy"
	SettingProxyEndpoint = "proxy_endpoint"
)

func settingsToRows(cfg resolver.ProviderConfig) map[string]string {
	return map[string]string{
		SettingAPIKey:        cfg.APIKey,
		SettingAPIHost:       cfg.APIHost,
		SettingBaseURL:       cfg.BaseURL,
		SettingMethod:        string(cfg.Method),
		SettingUseProxy:      strconv.FormatBool(cfg.UseProxy),
		SettingProxyEndpoint: cfg.ProxyEndpoint,
	}
}

func rowsToSettings(rows map[string]string) (resolver.ProviderConfig, error) {
	method, err := resolver.ParseMethod(rows[SettingMethod])
	if err != nil {
		return resolver.ProviderConfig{}, fmt.Errorf("stored %s: %w", SettingMethod, err)
	}

	var useProxy bool
	if raw := rows[SettingUseProxy]; raw != "" {
		useProxy, err = strconv.ParseBool(raw)
		if err != nil {
			return resolver.ProviderConfig{}, fmt.Errorf("stored %s: %w", SettingUseProxy, err)
		}
	}

	return resolver.ProviderConfig{
		APIKey:        rows[SettingAPIKey],
		APIHost:       rows[SettingAPIHost],
		BaseURL:       rows[SettingBaseURL],
		Method:        method,
		UseProxy:      useProxy,
		ProxyEndpoint: rows[SettingProxyEndpoint],
	}, nil
}
