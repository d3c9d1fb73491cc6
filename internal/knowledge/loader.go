package knowledge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Bundle is the loaded pair of documents a widget runs on.
type Bundle struct {
	Business *BusinessInfo
	Client   *ClientConfig
}

// Load fetches and decodes the client config and business profile.
func Load(ctx context.Context, src Source, clientName, businessName string) (*Bundle, error) {
	clientRaw, err := src.Fetch(ctx, clientName)
	if err != nil {
		return nil, err
	}
	client, err := ParseClientConfig(clientRaw)
	if err != nil {
		return nil, err
	}
	businessRaw, err := src.Fetch(ctx, businessName)
	if err != nil {
		return nil, err
	}
	business, err := ParseBusinessInfo(businessRaw)
	if err != nil {
		return nil, err
	}
	return &Bundle{Business: business, Client: client}, nil
}

// ParseBusinessInfo decodes a business profile document.
func ParseBusinessInfo(data []byte) (*BusinessInfo, error) {
	var info BusinessInfo
	if err := json.NewDecoder(bytes.NewReader(data)).Decode(&info); err != nil {
		return nil, fmt.Errorf("knowledge: decode business info: %w", err)
	}
	if strings.TrimSpace(info.BusinessName) == "" {
		return nil, ErrMissingBusinessName
	}
	return &info, nil
}

// ParseClientConfig decodes a client config document and applies defaults.
func ParseClientConfig(data []byte) (*ClientConfig, error) {
	var cfg ClientConfig
	if err := json.NewDecoder(bytes.NewReader(data)).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("knowledge: decode client config: %w", err)
	}
	if cfg.Language != Tamil {
		cfg.Language = English
	}
	if cfg.Mode != ModeHybrid {
		cfg.Mode = ModeBrowser
	}
	return &cfg, nil
}
