// Package platformsdk is the Go client for the multiman HTTP API, and the
// home of the request/response types shared by the server handlers.
//
// Typical use:
//
//	client := platformsdk.NewClient("http://localhost:8080")
//	sess, err := client.Login(ctx, "ann@example.com", "s3cret-pass")
//	if err != nil {
//		return err
//	}
//	id, err := sess.CreateResource(ctx, "school", "student", json.RawMessage(`{"name":"Ann"}`))
//
// Errors returned by the server surface as *APIError; compare codes with
// errors.Is against the predefined values (ErrForbidden, ErrNotFound, ...).
package platformsdk
