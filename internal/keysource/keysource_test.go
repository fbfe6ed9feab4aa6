package keysource

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
)

type fakeSSM struct {
	value   *string
	err     error
	gotName string
	decrypt bool
}

func (f *fakeSSM) GetParameter(ctx context.Context, in *ssm.GetParameterInput, _ ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
	f.gotName = aws.ToString(in.Name)
	f.decrypt = aws.ToBool(in.WithDecryption)
	if f.err != nil {
		return nil, f.err
	}
	return &ssm.GetParameterOutput{
		Parameter: &types.Parameter{Value: f.value},
	}, nil
}

func TestResolve_ExplicitKeyWins(t *testing.T) {
	got, err := Resolve(context.Background(), Source{Key: " RGAPI-test-key ", SSMParam: "/ignored"})
	if err != nil {
		t.Fatal(err)
	}
	if got != "RGAPI-test-key" {
		t.Fatalf("key = %q", got)
	}
}

func TestResolve_NothingConfigured(t *testing.T) {
	if _, err := Resolve(context.Background(), Source{}); err == nil {
		t.Fatal("expected an error with no key source")
	}
}

func TestFromSSM(t *testing.T) {
	f := &fakeSSM{value: aws.String("RGAPI-from-ssm\n")}
	got, err := fromSSM(context.Background(), f, "/riotquota/api-key")
	if err != nil {
		t.Fatal(err)
	}
	if got != "RGAPI-from-ssm" {
		t.Fatalf("key = %q", got)
	}
	if f.gotName != "/riotquota/api-key" {
		t.Fatalf("parameter name = %q", f.gotName)
	}
	if !f.decrypt {
		t.Fatal("SecureString parameters must be fetched with decryption")
	}
}

func TestFromSSM_Errors(t *testing.T) {
	t.Run("client error", func(t *testing.T) {
		f := &fakeSSM{err: errors.New("AccessDeniedException")}
		if _, err := fromSSM(context.Background(), f, "/p"); err == nil {
			t.Fatal("expected error")
		}
	})
	t.Run("empty value", func(t *testing.T) {
		f := &fakeSSM{value: aws.String("  ")}
		if _, err := fromSSM(context.Background(), f, "/p"); err == nil {
			t.Fatal("expected error for empty parameter")
		}
	})
	t.Run("nil value", func(t *testing.T) {
		f := &fakeSSM{value: nil}
		if _, err := fromSSM(context.Background(), f, "/p"); err == nil {
			t.Fatal("expected error for missing parameter value")
		}
	})
}
