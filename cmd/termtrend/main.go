// Command termtrend polls a community feed, ranks the terms its posts
// mention over fixed time windows and serves the resulting trends.
package main

import "github.com/Adithya-Monish-Kumar-K/Term-Trend-Analytics/cmd/termtrend/cmd"

func main() {
	cmd.Execute()
}
