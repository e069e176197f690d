package handler

import (
	"github.com/nyxscore/connectone-sub003/internal/usecase"
)

var (
	transactionHandler *TransactionHandler
	chatHandler        *ChatHandler
	blockHandler       *BlockHandler
)

func Setup(
	transactionUseCase *usecase.TransactionUseCase,
	chatUseCase *usecase.ChatUseCase,
	blockUseCase *usecase.BlockUseCase,
) {
	transactionHandler = NewTransactionHandler(transactionUseCase)
	chatHandler = NewChatHandler(chatUseCase)
	blockHandler = NewBlockHandler(blockUseCase)
}

func GetTransactionHandler() *TransactionHandler {
	return transactionHandler
}

func GetChatHandler() *ChatHandler {
	return chatHandler
}

func GetBlockHandler() *BlockHandler {
	return blockHandler
}
