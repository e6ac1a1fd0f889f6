// Package gmail provides a client for the parts of the Gmail API the agent
// needs: sending mail, creating drafts and reading the account profile.
//
// Messages are built in RFC 2822 format with RFC 2047 encoded headers, so
// subjects containing non-ASCII text survive delivery.
//
// Example usage:
//
//	client, err := gmail.NewClientForConnection(ctx, manager, connectionID)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	msgID, err := client.SendEmail(ctx, &gmail.EmailMessage{
//	    To:      []string{"recipient@example.com"},
//	    Subject: "Query Result: total revenue",
//	    Body:    "The total revenue is 41,230.55",
//	})
package gmail
