// Package store 提供 RAG 服务的文档存储层。
//
// DocumentStore 负责文档的持久化与最近邻检索, 向量化由存储内部完成,
// 上层只传入原始文本。提供 Milvus、SQLite 与内存三种实现。
package store
