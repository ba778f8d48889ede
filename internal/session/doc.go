// Package session is the API the host application uses for authentication.
//
// A Service ties the credential store, the identity provider client and the
// relay client together:
//
//	svc := session.New(session.Config{Store: store, Provider: client, Relay: relayClient, Device: device})
//	if cred := svc.RefreshIfNeeded(ctx, svc.LoadStoredCredential()); cred != nil {
//		// use cred
//	}
//	challenge, err := svc.BeginPairing(ctx)
//	// render challenge.ChallengeURL
//	cred, err := svc.PollForCompletion(ctx, redraw)
//	err = svc.Persist(cred)
//
// Every failure resolves to "no valid session"; nothing here is fatal to the
// host process.
package session
