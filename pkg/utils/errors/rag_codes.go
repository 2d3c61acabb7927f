package errors

import "net/http"

// RAG 服务错误码, 服务代码 20。
// 存储与生成故障统一返回 500, 不使用类别默认的 503。
var (
	ErrRAGInvalidRequest = Register(New(MakeCode(ServiceRAG, CategoryRequest, 1), 0, "Invalid request parameters", "请求参数无效"))
	ErrRAGValidation     = Register(New(MakeCode(ServiceRAG, CategoryRequest, 4), 0, "Input cannot be empty", "输入不能为空"))

	ErrRAGNoContext    = Register(New(MakeCode(ServiceRAG, CategoryResource, 2), 0, "No relevant context found in knowledge base", "知识库中未找到相关内容"))
	ErrRAGFileNotFound = Register(New(MakeCode(ServiceRAG, CategoryResource, 3), 0, "Knowledge file not found", "知识文件不存在"))

	ErrRAGStatsUnavailable = Register(New(MakeCode(ServiceRAG, CategoryInternal, 5), 0, "Statistics unavailable", "统计信息不可用"))
	ErrRAGGeneration       = Register(New(MakeCode(ServiceRAG, CategoryInternal, 6), 0, "Answer generation failed", "答案生成失败"))

	ErrRAGStoreUnavailable = Register(New(MakeCode(ServiceRAG, CategoryNetwork, 3), http.StatusInternalServerError, "Document store unavailable", "文档存储不可用"))

	ErrRAGQueryTimeout = Register(New(MakeCode(ServiceRAG, CategoryTimeout, 1), 0, "Query timeout", "查询超时"))
)

// IsValidation 判断 err 是否为输入校验错误。
func IsValidation(err error) bool { return Is(err, ErrRAGValidation) }

// IsNotFound 判断 err 是否为未检索到上下文。
func IsNotFound(err error) bool { return Is(err, ErrRAGNoContext) }

// IsStoreUnavailable 判断 err 是否为文档存储故障。
func IsStoreUnavailable(err error) bool { return Is(err, ErrRAGStoreUnavailable) }

// IsGeneration 判断 err 是否为生成后端故障。
func IsGeneration(err error) bool { return Is(err, ErrRAGGeneration) }
