package mocks

//go:generate mockgen -source=./../client/modules/chain/chain.go -destination=./chainMocks/chain_mock.go -package=chainMocks
//go:generate mockgen -source=./../client/modules/rate/rate.go -destination=./rateMocks/rate_mock.go -package=rateMocks
//go:generate mockgen -source=./../storage/types.go -destination=./storageMocks/storage_mock.go -package=storageMocks
