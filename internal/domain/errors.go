package domain

import "errors"

// Erros de domínio (sem dependências externas). Os handlers HTTP e os
// engines mapeiam estes sentinelas para códigos de status e estados
// persistidos.
var (
	ErrNotFound     = errors.New("recurso não encontrado")
	ErrInvalidInput = errors.New("entrada inválida")
	ErrInvalidState = errors.New("transição de estado inválida")
	ErrConflict     = errors.New("conflito com o estado atual")
	ErrUnsupported  = errors.New("operação não suportada na jurisdição")
	ErrNoEquipment  = errors.New("nenhum equipamento fiscal disponível")
	ErrTransport    = errors.New("falha de transporte fiscal")
	ErrPipeline     = errors.New("falha no processamento do lote de exportação")
	ErrUnauthorized = errors.New("não autorizado")
	ErrDuplicate    = errors.New("recurso duplicado")
)
