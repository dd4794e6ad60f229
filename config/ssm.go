package config

import (
	"context"
	"errors"
	"fmt"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
)

type parameterGetter interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

func newParameterGetter(ctx context.Context) (parameterGetter, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}
	return ssm.NewFromConfig(cfg), nil
}

// applyParameterStore overrides the REST endpoint settings with values
// stored under cfg.SSM.Prefix. Missing parameters keep the loaded value.
// A nil client is created from the default AWS credential chain.
func applyParameterStore(ctx context.Context, cfg *Config, client parameterGetter) error {
	if client == nil {
		var err error
		if client, err = newParameterGetter(ctx); err != nil {
			return err
		}
	}

	prefix := strings.TrimRight(cfg.SSM.Prefix, "/")
	targets := []struct {
		name string
		dst  *string
	}{
		{"binance/rest/base_url", &cfg.Binance.REST.BaseURL},
		{"binance/rest/proxy_url", &cfg.Binance.REST.ProxyURL},
	}
	for _, t := range targets {
		value, found, err := getParameterStoreValue(ctx, client, prefix+"/"+t.name, true)
		if err != nil {
			return err
		}
		if found {
			*t.dst = value
		}
	}
	return nil
}

func getParameterStoreValue(ctx context.Context, client parameterGetter, parameterName string, decrypt bool) (string, bool, error) {
	input := &ssm.GetParameterInput{
		Name:           &parameterName,
		WithDecryption: &decrypt,
	}

	result, err := client.GetParameter(ctx, input)
	if err != nil {
		var notFound *types.ParameterNotFound
		if errors.As(err, &notFound) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to read parameter %s: %w", parameterName, err)
	}

	if result.Parameter == nil || result.Parameter.Value == nil {
		return "", false, nil
	}

	return *result.Parameter.Value, true, nil
}
