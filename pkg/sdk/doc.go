// Package magnus lets workers charge per-organization budgets directly against
// the shared Redis or Valkey counter store, without going through the ops API.
//
// Budgets are fixed one-minute windows per (kind, organization). A take always
// increments the counter; the returned Decision tells whether usage is still
// within the cap.
//
//	client, _ := magnus.New(ctx,
//	    magnus.WithRedisURL(os.Getenv("REDIS_URL")),
//	    magnus.WithLimits(60, 30000, 1),
//	)
//	defer client.Close()
//
//	d, err := client.TakeTokens(ctx, magnus.KindLLM, orgID, 1200)
//	if err != nil {
//	    // store unreachable: decide whether to proceed
//	}
//	if !d.Allowed {
//	    // over budget for this minute
//	}
//
// Admit applies the caller policy configured with WithWarnOnly and WithFailOpen
// and returns an error matching ErrBudgetExceeded when the request must stop.
package magnus
