package transcribe

import (
	"context"
	"errors"
	"log"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
)

// SubmissionService は受付ハンドラが利用するジョブ受理機能です。
type SubmissionService interface {
	PrepareJob(ctx context.Context, file *multipart.FileHeader, owner string) (*JobManifest, error)
	DiscardJob(jobID string) error
}

// JobScheduler は受理済みジョブをワーカーキューへ投入します。
type JobScheduler interface {
	Schedule(ctx context.Context, manifest *JobManifest) error
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// SubmitHandler はファイルを受け取り、文字起こしジョブとして受理します。
// 受理できた場合は 202 とジョブIDを返し、処理自体はワーカーに任せます。
func SubmitHandler(service SubmissionService, scheduler JobScheduler, maxUploadSize int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		file, err := c.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, errorBody{
				Code:    CodeInvalidInput,
				Message: "ファイルが添付されていません。",
			})
			return
		}
		if maxUploadSize > 0 && file.Size > maxUploadSize {
			c.JSON(http.StatusRequestEntityTooLarge, errorBody{
				Code:    CodeInvalidInput,
				Message: "ファイルサイズが上限を超えています。",
			})
			return
		}

		owner := c.PostForm("owner")
		if owner == "" {
			owner = "anonymous"
		}

		manifest, err := service.PrepareJob(c.Request.Context(), file, owner)
		if err != nil {
			status, body := submissionError(err)
			c.JSON(status, body)
			return
		}

		if err := scheduler.Schedule(c.Request.Context(), manifest); err != nil {
			log.Printf("failed to schedule job %s: %v", manifest.JobID, err)
			if discardErr := service.DiscardJob(manifest.JobID); discardErr != nil {
				log.Printf("failed to discard job %s: %v", manifest.JobID, discardErr)
			}
			c.JSON(http.StatusInternalServerError, errorBody{
				Code:    CodeInternal,
				Message: "ジョブの投入に失敗しました。",
			})
			return
		}

		c.JSON(http.StatusAccepted, gin.H{
			"jobId":  manifest.JobID,
			"status": "queued",
		})
	}
}

// submissionError は受理時のエラーをHTTPステータスと応答本文へ対応付けます。
func submissionError(err error) (int, errorBody) {
	var terr *Error
	if errors.As(err, &terr) {
		status := http.StatusInternalServerError
		switch terr.Code {
		case CodeInvalidInput:
			status = http.StatusBadRequest
		case CodeUnsupportedMedia:
			status = http.StatusUnsupportedMediaType
		}
		return status, errorBody{Code: terr.Code, Message: terr.Message}
	}
	return http.StatusInternalServerError, errorBody{
		Code:    CodeInternal,
		Message: "ジョブの受理に失敗しました。",
	}
}
