// Package watchtower is a client for the insider threat detection service.
// It keeps an analyst session, calls the service with retries and
// session teardown on rejection, and polls a live dashboard snapshot.
//
// Quick start:
//
//	c, err := watchtower.New(watchtower.WithAPIURL("http://localhost:8000/api"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer c.Close()
//
//	if _, err := c.Login(ctx, "analyst", "analyst123"); err != nil {
//	    log.Fatal(err)
//	}
//	alerts, _ := c.RecentAlerts(ctx, 20)
//	fmt.Println(len(alerts), "recent alerts")
//
// A Client is safe for concurrent use. Create one per process and share it.
package watchtower
