// Package melissa is a client for the Melissa Data web services.
//
// Every request carries one authentication identifier in the id query
// parameter, chosen in order from a per-call token, the configured license
// key and the configured user id:
//
//	client, err := melissa.New(melissa.Config{LicenseKey: "key"})
//	if err != nil {
//		return err
//	}
//	raw, err := client.IPLocation(ctx, "8.8.8.8", "")
//	if err != nil {
//		return err
//	}
//	reply, err := melissa.DecodeIPLocation(raw)
//
// Non-2xx answers are returned as *APIError, failures before a response as
// *TransportError. Nothing is retried or cached.
package melissa
