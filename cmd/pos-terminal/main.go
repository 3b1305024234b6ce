package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"nexuspos/internal/pkg/bootstrap"
	"nexuspos/internal/pkg/httpclient"
	"nexuspos/internal/pkg/logger"
	"nexuspos/internal/pkg/nacos"
	"nexuspos/internal/pkg/tracing"
	"nexuspos/internal/service/sale/application"

	zlog "github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

const (
	serviceName       = "pos-terminal"
	targetServiceName = "pos-service"
)

func main() {
	var (
		baseURL   = flag.String("url", "", "pos-service base URL; resolved through Nacos when empty and nacos is enabled")
		items     = flag.String("items", "", "cart lines as product_id:quantity, comma separated")
		promotion = flag.String("promotion", "", "promotion id to apply")
		auto      = flag.String("auto", "", "pick the best promotion automatically: true|false (store default when empty)")
		payment   = flag.String("payment", "cash", "payment method: cash|card|transfer|qr")
		notes     = flag.String("notes", "", "sale notes")
		quote     = flag.Bool("quote", false, "only quote the cart, do not check out")
		timeout   = flag.Duration("timeout", 15*time.Second, "request timeout")
	)
	flag.Parse()

	cfg, err := bootstrap.Init()
	if err != nil {
		zlog.Fatal().Err(err).Msg("failed to load config")
	}
	logger.Init(serviceName, cfg.App.LogLevel)

	tp, err := tracing.InitTracerProvider(serviceName, cfg.Infra.Jaeger.Endpoint)
	if err != nil {
		zlog.Fatal().Err(err).Msg("failed to initialize tracer provider")
	}
	defer tp.Shutdown(context.Background())

	lines, err := parseItems(*items)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		flag.Usage()
		os.Exit(2)
	}

	target, err := resolveBaseURL(cfg, *baseURL)
	if err != nil {
		zlog.Fatal().Err(err).Msg("could not resolve pos-service address")
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	tracer := otel.Tracer(serviceName)
	ctx, span := tracer.Start(ctx, "terminal.Submit")
	span.SetAttributes(attribute.Int("cart.items", len(lines)), attribute.Bool("terminal.quote", *quote))

	client := httpclient.NewClient(tracer)
	var out json.RawMessage
	if *quote {
		err = client.PostJSON(ctx, target+"/cart/quote", application.QuoteRequest{Items: lines, PromotionID: *promotion}, &out)
	} else {
		req := application.CheckoutRequest{
			Items:         lines,
			PromotionID:   *promotion,
			PaymentMethod: *payment,
			Notes:         *notes,
		}
		if *auto != "" {
			v, perr := strconv.ParseBool(*auto)
			if perr != nil {
				span.End()
				zlog.Fatal().Err(perr).Msg("invalid -auto value")
			}
			req.AutoPromotion = &v
		}
		err = client.PostJSON(ctx, target+"/checkout", req, &out)
	}
	span.End()

	if err != nil {
		var se *httpclient.StatusError
		if errors.As(err, &se) {
			fmt.Fprintf(os.Stderr, "%d %s\n", se.StatusCode, strings.TrimSpace(string(se.Body)))
			os.Exit(1)
		}
		zlog.Error().Err(err).Msg("request failed")
		os.Exit(1)
	}
	printJSON(out)
}

// parseItems 解析 "A:2,B:1" 形式的购物车
func parseItems(s string) ([]application.CartLine, error) {
	if strings.TrimSpace(s) == "" {
		return nil, fmt.Errorf("-items is required")
	}
	var lines []application.CartLine
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, qty, found := strings.Cut(part, ":")
		if !found {
			qty = "1"
		}
		n, err := strconv.Atoi(qty)
		if err != nil {
			return nil, fmt.Errorf("invalid quantity in %q", part)
		}
		lines = append(lines, application.CartLine{ProductID: strings.TrimSpace(id), Quantity: n})
	}
	return lines, nil
}

func resolveBaseURL(cfg *bootstrap.Config, explicit string) (string, error) {
	if explicit != "" {
		return strings.TrimRight(explicit, "/"), nil
	}
	if !cfg.Infra.Nacos.Enabled {
		return fmt.Sprintf("http://localhost:%d", cfg.App.Port), nil
	}
	client, err := nacos.NewNacosClient(cfg.Infra.Nacos.ServerAddrs, cfg.Infra.Nacos.Namespace, cfg.Infra.Nacos.Group)
	if err != nil {
		return "", err
	}
	return client.ResolveBaseURL(targetServiceName)
}

func printJSON(raw json.RawMessage) {
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		fmt.Println(string(raw))
		return
	}
	pretty, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(pretty))
}
