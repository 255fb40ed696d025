package slurm

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func Test_BaseURLStripsOneTrailingSlash(t *testing.T) {
	properties := gopter.NewProperties(nil)
	properties.Property("exactly one trailing slash is removed", prop.ForAll(
		func(host string, slash bool) bool {
			in := "https://" + host + ".com"
			if slash {
				in += "/"
			}
			client, err := NewClient(in)
			if err != nil {
				return false
			}
			return client.BaseURL() == "https://"+host+".com"
		},
		gen.Identifier(),
		gen.Bool(),
	))

	properties.TestingRun(t)
}

func Test_BearerHeaderFollowsToken(t *testing.T) {
	properties := gopter.NewProperties(nil)
	properties.Property("protected calls carry the current token", prop.ForAll(
		func(first, second string) bool {
			client, fake := newFakeClient(t, first)
			ctx := context.Background()
			if _, err := client.PauseJob(ctx, 1); err != nil {
				return false
			}
			client.SetAccessToken(second)
			if _, err := client.ResumeJob(ctx, 1); err != nil {
				return false
			}
			return fake.calls[0].headers["Authorization"] == "Bearer "+first &&
				fake.calls[1].headers["Authorization"] == "Bearer "+second
		},
		gen.AlphaString().SuchThat(func(s string) bool { return s != "" }),
		gen.AlphaString().SuchThat(func(s string) bool { return s != "" }),
	))

	properties.TestingRun(t)
}

func Test_JobPathsUseJobID(t *testing.T) {
	properties := gopter.NewProperties(nil)
	properties.Property("retry path ends with /jobs/{id}/retry", prop.ForAll(
		func(id int) bool {
			client, fake := newFakeClient(t, "token")
			if _, err := client.RetryJob(context.Background(), id); err != nil {
				return false
			}
			return strings.HasSuffix(fake.calls[0].url, "/jobs/"+strconv.Itoa(id)+"/retry")
		},
		gen.IntRange(0, 1<<30),
	))

	properties.TestingRun(t)
}

func Test_EmptyTokenNeverReachesTransport(t *testing.T) {
	properties := gopter.NewProperties(nil)
	properties.Property("no token means no call", prop.ForAll(
		func(id int) bool {
			client, fake := newFakeClient(t, "")
			_, err := client.DeleteJob(context.Background(), id)
			return errors.Is(err, ErrAuthRequired) && len(fake.calls) == 0
		},
		gen.Int(),
	))

	properties.TestingRun(t)
}
