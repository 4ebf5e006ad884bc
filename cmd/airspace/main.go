package main

import "airspace_fan/cmd/airspace/cmd"

// @title           Airspace Fan API
// @version         1.0
// @description     Discovers whole-house fans on the local network, controls them and watches the outside temperature.
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cmd.Execute()
}
