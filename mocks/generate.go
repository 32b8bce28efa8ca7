package mocks

//go:generate mockgen -destination=./mock_transport.go -package=mocks github.com/rxtech-lab/quotex-connect/internal/transport Transport
