package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/ivankudzin/tgapp/subscriptions/internal/config"
	"github.com/ivankudzin/tgapp/subscriptions/internal/domain/enums"
	authsvc "github.com/ivankudzin/tgapp/subscriptions/internal/services/auth"
)

func main() {
	userID := flag.Int64("user", 0, "user id")
	role := flag.String("role", string(enums.RoleUser), "USER, OWNER or SUPPORT")
	flag.Parse()

	if *userID <= 0 {
		log.Fatal("use -user to pass a positive user id")
	}

	_ = godotenv.Load()

	cfgPath := os.Getenv("APP_CONFIG")
	if cfgPath == "" {
		cfgPath = "configs/config.yaml"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if cfg.IsProduction() {
		log.Fatal("dev tokens are not issued in production")
	}

	service := authsvc.NewService(authsvc.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer, cfg.Auth.JWTAccessTTL))
	issued, err := service.Issue(*userID, enums.ParseRole(*role))
	if err != nil {
		log.Fatalf("issue token: %v", err)
	}
	fmt.Println(issued.AccessToken)
}
