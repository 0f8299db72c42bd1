// token emite un JWT firmado con JWT_SECRET para operar la API sin servicio de login.
//
// Uso: go run ./cmd/token -user u-123 -role bodeguero
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/jhoicas/stockledger-api/pkg/config"
	"github.com/jhoicas/stockledger-api/pkg/jwt"
)

func main() {
	var userID, role string
	var minutes int
	flag.StringVar(&userID, "user", "", "ID del actor que quedará en la auditoría")
	flag.StringVar(&role, "role", "bodeguero", "admin | bodeguero | vendedor")
	flag.IntVar(&minutes, "exp", 0, "minutos de vigencia (0 = JWT_EXPIRATION_MINUTES)")
	flag.Parse()

	if userID == "" {
		fmt.Fprintln(os.Stderr, "uso: token -user <id> [-role bodeguero] [-exp 60]")
		os.Exit(1)
	}
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "cargar configuración: %v\n", err)
		os.Exit(1)
	}
	if minutes <= 0 {
		minutes = cfg.JWT.Expiration
	}
	tok, err := jwt.Generate(cfg.JWT.Secret, userID, role, cfg.JWT.Issuer, minutes)
	if err != nil {
		fmt.Fprintf(os.Stderr, "generar token: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(tok)
}
