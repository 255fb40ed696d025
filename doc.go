// Package slurm provides a Go client for the Slurm job scheduling REST API.
//
// The SDK has two components:
//
//   - [Transport]: one JSON HTTP round trip per call, with every failure
//     normalized into an [*Error].
//   - [Client]: one method per remote operation (authenticate, users, jobs),
//     attaching the bearer token to protected calls.
//
// # Quick Start
//
//	client, err := slurm.NewClient("https://slurm.example.com/api")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	res, err := client.Authenticate(ctx, "user@example.com", "secret")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	client.SetAccessToken(res.(map[string]any)["access_token"].(string))
//	jobs, err := client.ListJobs(ctx, slurm.JobQuery{Limit: slurm.Int(10)})
//
// # Errors
//
// All failures are *[Error] values. Use errors.Is with [ErrAuthRequired],
// [ErrRequest], [ErrProtocol] or [ErrRemote] to tell them apart, and
// [StatusCode] / [ErrorData] to inspect a remote failure:
//
//	_, err := client.PauseJob(ctx, 42)
//	if errors.Is(err, slurm.ErrRemote) && slurm.StatusCode(err) == 404 {
//	    // no such job
//	}
//
// The SDK performs no retries. Supply a retrying [Doer] via [WithDoer] if
// you need them.
package slurm
