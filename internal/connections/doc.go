// Package connections brokers OAuth connections between a local user and the
// Google toolkits (Sheets and Gmail).
//
// A connection moves from INITIATED to ACTIVE once the user completes the
// consent screen opened from the redirect URL returned by Initiate. The
// authorization code arrives on a loopback listener whose state parameter is
// the connection ID. Connection records live in connections.json inside the
// sheetmailer cache directory; each ACTIVE connection has its token in
// <id>.token next to it.
//
// Typical use:
//
//	mgr, _ := connections.NewManager(creds)
//	req, _ := mgr.Initiate(ctx, "default_user", connections.AuthConfigSheets, connections.InitiateOptions{})
//	fmt.Println(req.RedirectURL)
//	conn, err := mgr.Wait(ctx, req.ID, 300*time.Second)
package connections
