// Package extraction is a client for a remote PDF extraction service.
//
// The service is addressed with JSON POST requests authenticated by an x-api-key
// header. A document is uploaded once and every other call refers to it by the
// returned URL:
//
//	POST /file/upload          {name, file}                       -> {url}
//	POST /pdf/convert/to/text  {url, lang, unwrap, pages, async}  -> {body, pageCount} | {jobId, url}
//	POST /pdf/info             {url}                              -> {info}
//	POST /pdf/convert/to/json  {url}                              -> {pages: [{page, text}]}
//	POST /pdf/convert/to/png   {url, pages, resolution}           -> {urls}
//	POST /pdf/convert/to/csv   {url}                              -> {body}
//	POST /job/check            {jobid}                            -> {status, message}
//
// All calls made through one Client share a counting semaphore, so concurrent
// sub-requests for the same document count against the same in-flight cap.
package extraction
