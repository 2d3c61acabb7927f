// Package biz 提供 RAG 服务的业务逻辑层。
//
// 该包将一次问答拆分为以下组件：
//   - Retriever: 调用 DocumentStore 取回最相似的一条文档, 返回 Found 或 NotFound
//   - Composer: 组装提示词并调用生成后端
//   - RAGService: 组合以上组件, 提供添加知识、问答、批量导入和统计接口
package biz
