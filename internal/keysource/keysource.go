// Package keysource resolves the Riot API key at startup. Precedence:
// explicit value (flag/env) > SSM parameter. Keys are secrets, so the SSM
// path requests decryption and the resolved value is never logged.
package keysource

import (
	"context"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"

	"github.com/keithlinneman/riotquota/internal/xerrors"
)

type Source struct {
	// Key is an explicit API key; wins when non-empty.
	Key string
	// SSMParam names a (SecureString) parameter holding the key.
	SSMParam string
}

// parameterGetter is the slice of the SSM client we use; tests provide fakes.
type parameterGetter interface {
	GetParameter(ctx context.Context, in *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// Resolve returns the API key for the configured source.
func Resolve(ctx context.Context, s Source) (string, error) {
	if k := strings.TrimSpace(s.Key); k != "" {
		return k, nil
	}
	if s.SSMParam == "" {
		return "", xerrors.New("no api key configured (set -api-key or -api-key-ssm-param)")
	}

	awsCfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return "", xerrors.Wrap(err, "load aws config")
	}
	return fromSSM(ctx, ssm.NewFromConfig(awsCfg), s.SSMParam)
}

func fromSSM(ctx context.Context, client parameterGetter, param string) (string, error) {
	out, err := client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(param),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return "", xerrors.Wrapf(err, "get ssm parameter %s", param)
	}
	if out.Parameter == nil || out.Parameter.Value == nil {
		return "", xerrors.Newf("ssm parameter %s has no value", param)
	}
	key := strings.TrimSpace(*out.Parameter.Value)
	if key == "" {
		return "", xerrors.Newf("ssm parameter %s is empty", param)
	}
	return key, nil
}
